// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/service"
)

// Access is what a command needs before it can run.
type Access int

const (
	// Local commands never contact the server.
	Local Access = iota

	// Anonymous commands contact the server without a session.
	Anonymous

	// Authenticated commands need a stored, unexpired session.
	Authenticated
)

// IO bundles the streams a command reads and writes.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the positional arguments, e.g. "<table> <id>".
	Usage() string

	// Access reports whether the command needs the server and a session.
	Access() Access

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// svc is nil for Local commands.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int
}
