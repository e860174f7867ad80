//go:build !linux

package daemon

const fdDir = "/dev/fd"
