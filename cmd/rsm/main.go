// Package main is the entry point for the rsm CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rsm/internal/backend/rsmapi"
	"rsm/internal/cli"
	"rsm/internal/commands"
	"rsm/internal/config"
	"rsm/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return rsmapi.New(ctx, cfg)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code := dispatcher.Run(ctx, os.Args[1:], commands.IO{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	})
	stop()
	os.Exit(code)
}
