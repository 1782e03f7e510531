// Package main provides the expdb CLI application entry point.
// expdb administers the simulation experiments stored in a document database.
package main

import (
	"context"
	"os"
	"os/signal"

	"expdb/internal/cli"
	"expdb/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := cli.NewApp()
	if err := app.Execute(ctx, os.Args[1:]); err != nil {
		logger.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
