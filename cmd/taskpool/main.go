package main

import (
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/Iron-Ham/taskpool/internal/cmd"
)

func main() {
	// Match GOMAXPROCS to the container CPU quota before any worker starts.
	undo, _ := maxprocs.Set()
	defer undo()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
