package main

import (
	"os"

	"github.com/dshills/reviewrecall/internal/cli"
	"github.com/dshills/reviewrecall/internal/logging"
)

func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
