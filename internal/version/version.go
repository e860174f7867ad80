package version

// Version is the daemonizer release, printed by --version.
var Version = "1.1.0"
