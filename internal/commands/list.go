package commands

import (
	"context"
	"strings"

	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/output"
	"rsm/internal/render"
	"rsm/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Without a table it shows the table definitions, with one its tasks.
type ListCmd struct {
	group  string
	sortBy string
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tables, or the tasks of a table" }
func (c *ListCmd) Usage() string     { return "[table]" }
func (c *ListCmd) Access() Access    { return Authenticated }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.group, "group", "g", "", "only show tasks of this group (requires a table)")
	fs.StringVarP(&c.sortBy, "sort-by", "s", "", "sort tasks by this key (requires a table)")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	if len(args) > 1 {
		return usageError(streams.Err, "unexpected argument: %s", args[1])
	}

	opts := render.DefaultOptions(streams.Out)

	if len(args) == 0 {
		if c.group != "" {
			return usageError(streams.Err, "--group requires a table name")
		}
		if c.sortBy != "" {
			return usageError(streams.Err, "--sort-by requires a table name")
		}
		specs, err := svc.ListTables(ctx)
		if err != nil {
			return report(ctx, streams.Err, err)
		}
		return c.write(streams, render.TableSpecs(streams.Out, specs, opts))
	}

	table := strings.TrimSpace(args[0])
	if table == "" {
		return usageError(streams.Err, "table name required")
	}
	tasks, err := svc.ListTasks(ctx, table, service.Query{
		Group:  strings.TrimSpace(c.group),
		SortBy: strings.TrimSpace(c.sortBy),
	})
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return c.write(streams, render.Tasks(streams.Out, tasks, opts))
}

func (c *ListCmd) write(streams IO, err error) int {
	if err != nil {
		output.Errorf(streams.Err, "write output: %v", err)
		return exitcode.UserError
	}
	return exitcode.Success
}
