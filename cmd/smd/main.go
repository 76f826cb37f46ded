// Package main is the entry point for the smd CLI.
package main

import (
	"os"

	"github.com/Midrags/SMD/cmd/smd/commands"
)

func main() {
	os.Exit(commands.Execute())
}
