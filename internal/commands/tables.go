package commands

import (
	"context"
	"strings"

	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/service"
)

func init() {
	Register(&CreateCmd{})
	Register(&DeleteCmd{})
	Register(&ClearCmd{})
}

// CreateCmd implements the create command.
type CreateCmd struct {
	due   bool
	group bool
}

func (c *CreateCmd) Name() string      { return "create" }
func (c *CreateCmd) Aliases() []string { return []string{"mk"} }
func (c *CreateCmd) Synopsis() string  { return "Create a table" }
func (c *CreateCmd) Usage() string     { return "<table>" }
func (c *CreateCmd) Access() Access    { return Authenticated }

func (c *CreateCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.due, "due", "d", false, "tasks of the table carry a due time")
	fs.BoolVarP(&c.group, "group", "g", false, "tasks of the table carry a group")
}

func (c *CreateCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	name, code, ok := tableArg(args, 1, streams)
	if !ok {
		return code
	}
	msg, err := svc.CreateTable(ctx, name, service.TableOptions{Due: c.due, Group: c.group})
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// DeleteCmd implements the delete command.
type DeleteCmd struct{}

func (c *DeleteCmd) Name() string      { return "delete" }
func (c *DeleteCmd) Aliases() []string { return []string{"drop"} }
func (c *DeleteCmd) Synopsis() string  { return "Delete a table and its tasks" }
func (c *DeleteCmd) Usage() string     { return "<table>" }
func (c *DeleteCmd) Access() Access    { return Authenticated }

func (c *DeleteCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DeleteCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	name, code, ok := tableArg(args, 1, streams)
	if !ok {
		return code
	}
	msg, err := svc.DropTable(ctx, name)
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// ClearCmd implements the clear command.
type ClearCmd struct{}

func (c *ClearCmd) Name() string      { return "clear" }
func (c *ClearCmd) Aliases() []string { return nil }
func (c *ClearCmd) Synopsis() string  { return "Remove every task of a table" }
func (c *ClearCmd) Usage() string     { return "<table>" }
func (c *ClearCmd) Access() Access    { return Authenticated }

func (c *ClearCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ClearCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	name, code, ok := tableArg(args, 1, streams)
	if !ok {
		return code
	}
	msg, err := svc.ClearTable(ctx, name)
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// tableArg checks that args holds exactly want arguments and returns the
// first as a table name.
func tableArg(args []string, want int, streams IO) (string, int, bool) {
	if len(args) == 0 {
		return "", usageError(streams.Err, "table name required"), false
	}
	if len(args) > want {
		return "", usageError(streams.Err, "unexpected argument: %s", args[want]), false
	}
	if len(args) < want {
		return "", usageError(streams.Err, "missing argument after %s", args[len(args)-1]), false
	}
	name := strings.TrimSpace(args[0])
	if name == "" {
		return "", usageError(streams.Err, "table name required"), false
	}
	return name, 0, true
}
