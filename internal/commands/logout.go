package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/output"
	"rsm/internal/response"
	"rsm/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct {
	yes bool
}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "End the session and remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "" }
func (c *LogoutCmd) Access() Access    { return Anonymous }

func (c *LogoutCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.yes, "yes", "y", false, "do not ask for confirmation")
}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	// Check if token.json exists
	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(streams.Out, "not logged in")
		}
		return exitcode.Success
	}

	if !c.yes {
		ok, err := output.NewPrompter(streams.In, streams.Out).Confirm("Are you sure you want to logout?")
		if err != nil {
			return usageError(streams.Err, "%v", err)
		}
		if !ok {
			if !cfg.Quiet {
				fmt.Fprintln(streams.Out, "aborted")
			}
			return exitcode.Success
		}
	}

	msg, serverErr := svc.Logout(ctx)

	// The local session goes regardless of what the server said.
	if err := cfg.RemoveToken(); err != nil {
		output.Errorf(streams.Err, "failed to remove token: %v", err)
		return exitcode.AuthError
	}

	var failure *response.Failure
	if errors.As(serverErr, &failure) && failure.Kind.IsAuth() {
		zerolog.Ctx(ctx).Info().Str("kind", failure.Kind.String()).Msg("server session already gone")
		serverErr = nil
	}
	if serverErr != nil {
		return report(ctx, streams.Err, serverErr)
	}
	return done(cfg, streams.Out, msg)
}
