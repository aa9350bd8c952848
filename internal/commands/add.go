package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/due"
	"rsm/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	due   string
	group string
	file  string
	line  int
	lines string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"new"} }
func (c *AddCmd) Synopsis() string  { return "Add a task to a table" }
func (c *AddCmd) Usage() string     { return "<table> <description...>" }
func (c *AddCmd) Access() Access    { return Authenticated }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.due, "due", "d", "", `due time, "HH:MM" or "YYYY-MM-DD HH:MM"`)
	fs.StringVarP(&c.group, "group", "g", "", "group of the task")
	fs.StringVarP(&c.file, "file", "f", "", "read the description from a file")
	fs.IntVarP(&c.line, "line", "l", 0, "use only this line of --file (1-based)")
	fs.StringVarP(&c.lines, "range", "r", "", "use lines A..B of --file (inclusive)")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	if len(args) == 0 {
		return usageError(streams.Err, "table name required")
	}
	table := strings.TrimSpace(args[0])
	if table == "" {
		return usageError(streams.Err, "table name required")
	}

	description, err := c.description(args[1:])
	if err != nil {
		return usageError(streams.Err, "%v", err)
	}

	task := service.NewTask{Description: description, Group: optional(strings.TrimSpace(c.group))}
	if c.due != "" {
		d, err := due.Parse(c.due)
		if err != nil {
			return usageError(streams.Err, "%v", err)
		}
		task.Due = &d
	}

	zerolog.Ctx(ctx).Debug().
		Str("table", table).
		Bool("due", task.Due != nil).
		Bool("group", task.Group != nil).
		Msg("adding task")

	msg, err := svc.AddTask(ctx, table, task)
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// description takes the task text from the arguments or from --file.
func (c *AddCmd) description(words []string) (string, error) {
	if c.file == "" {
		if c.line != 0 || c.lines != "" {
			return "", errors.New("--line and --range require --file")
		}
		return checkDescription(strings.Join(words, " "))
	}

	if len(words) > 0 {
		return "", errors.New("give the description as arguments or with --file, not both")
	}
	if c.line != 0 && c.lines != "" {
		return "", errors.New("--line and --range are mutually exclusive")
	}

	var r lineRange
	switch {
	case c.line != 0:
		if c.line < 0 {
			return "", errors.New("--line must be at least 1")
		}
		r = lineRange{first: c.line, last: c.line}
	case c.lines != "":
		var err error
		if r, err = parseRange(c.lines); err != nil {
			return "", err
		}
	}
	return readDescription(c.file, r)
}
