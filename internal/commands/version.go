package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/service"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct{}

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "" }
func (c *VersionCmd) Access() Access    { return Local }

func (c *VersionCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	fmt.Fprintf(streams.Out, "%s %s\n", config.AppName, Version)
	return exitcode.Success
}
