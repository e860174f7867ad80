package main

import (
	"os"

	"daemonizer/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute(cmd.NewRootCmd()))
}
