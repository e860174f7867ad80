//go:build !linux

package envsan

var platformStrategy Strategy = Iterative{}
