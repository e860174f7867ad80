package envsan

var platformStrategy Strategy = Bulk{}
