package daemon

const fdDir = "/proc/self/fd"
