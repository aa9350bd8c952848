package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/due"
	"rsm/internal/service"
)

func init() {
	Register(&RmCmd{})
	Register(&UpdateCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"remove"} }
func (c *RmCmd) Synopsis() string  { return "Remove a task" }
func (c *RmCmd) Usage() string     { return "<table> <id>" }
func (c *RmCmd) Access() Access    { return Authenticated }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	table, id, code, ok := taskArgs(args, streams)
	if !ok {
		return code
	}
	msg, err := svc.RemoveTask(ctx, table, id)
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// UpdateCmd implements the update command.
type UpdateCmd struct {
	description string
	due         string
	group       string
	flags       *pflag.FlagSet
}

func (c *UpdateCmd) Name() string      { return "update" }
func (c *UpdateCmd) Aliases() []string { return []string{"edit"} }
func (c *UpdateCmd) Synopsis() string  { return "Change the description, due time or group of a task" }
func (c *UpdateCmd) Usage() string     { return "<table> <id>" }
func (c *UpdateCmd) Access() Access    { return Authenticated }

func (c *UpdateCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.description, "description", "m", "", "new description")
	fs.StringVarP(&c.due, "due", "d", "", `new due time, "HH:MM" or "YYYY-MM-DD HH:MM"`)
	fs.StringVarP(&c.group, "group", "g", "", "new group")
	c.flags = fs
}

func (c *UpdateCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	table, id, code, ok := taskArgs(args, streams)
	if !ok {
		return code
	}

	var update service.TaskUpdate
	if c.changed("description", c.description) {
		desc, err := checkDescription(c.description)
		if err != nil {
			return usageError(streams.Err, "%v", err)
		}
		update.Description = &desc
	}
	if c.changed("due", c.due) {
		d, err := due.Parse(c.due)
		if err != nil {
			return usageError(streams.Err, "%v", err)
		}
		update.Due = &d
	}
	if c.changed("group", c.group) {
		group := strings.TrimSpace(c.group)
		update.Group = &group
	}
	if update.Empty() {
		return usageError(streams.Err, "nothing to update (use --description, --due or --group)")
	}

	msg, err := svc.UpdateTask(ctx, table, id, update)
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// changed reports whether a flag was given. Without a flag set, as when
// Run is called directly, a non-empty value counts as given.
func (c *UpdateCmd) changed(name, value string) bool {
	if c.flags != nil {
		return c.flags.Changed(name)
	}
	return value != ""
}

// taskArgs parses "<table> <id>".
func taskArgs(args []string, streams IO) (string, int64, int, bool) {
	switch {
	case len(args) == 0:
		return "", 0, usageError(streams.Err, "table name required"), false
	case len(args) == 1:
		return "", 0, usageError(streams.Err, "task id required"), false
	case len(args) > 2:
		return "", 0, usageError(streams.Err, "unexpected argument: %s", args[2]), false
	}

	table := strings.TrimSpace(args[0])
	if table == "" {
		return "", 0, usageError(streams.Err, "table name required"), false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
	if err != nil || id < 1 {
		return "", 0, usageError(streams.Err, "invalid task id: %s", args[1]), false
	}
	return table, id, 0, true
}
