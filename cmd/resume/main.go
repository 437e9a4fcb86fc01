// Package main provides the entry point for the resume CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vberset/resume/cmd/resume/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
