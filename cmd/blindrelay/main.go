package main

import (
	"os"

	"blindrelay/cmd/blindrelay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
