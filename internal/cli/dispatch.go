// Package cli turns the command registry into the rsm command line.
package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rsm/internal/auth"
	"rsm/internal/commands"
	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/logging"
	"rsm/internal/output"
	"rsm/internal/service"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// globalFlags are accepted by every command.
type globalFlags struct {
	configDir string
	quiet     bool
	debug     bool
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, streams commands.IO) int {
	code := exitcode.Success
	root := d.rootCommand(&code, streams)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		output.Errorf(streams.Err, "%s", err)
		return exitcode.UserError
	}
	return code
}

func (d *Dispatcher) rootCommand(code *int, streams commands.IO) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Keep tables of tasks and reminders on your rsm server",
		Long: "rsm manages tables of tasks on a remote server.\n\n" +
			"Run without a command to list your tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config", "", "configuration directory")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress informational output")
	pf.BoolVar(&flags.debug, "debug", false, "print debug logs to stderr")

	for _, c := range d.registry.All() {
		root.AddCommand(d.cobraCommand(c, &flags, code, streams))
	}

	// No command lists the tables.
	if list, ok := d.registry.Find("list"); ok {
		root.RunE = func(cmd *cobra.Command, args []string) error {
			*code = d.execute(cmd.Context(), list, &flags, args, streams)
			return nil
		}
	}
	return root
}

func (d *Dispatcher) cobraCommand(c commands.Command, flags *globalFlags, code *int, streams commands.IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:     strings.TrimSpace(c.Name() + " " + c.Usage()),
		Aliases: c.Aliases(),
		Short:   c.Synopsis(),
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = d.execute(cmd.Context(), c, flags, args, streams)
			return nil
		},
	}
	c.RegisterFlags(cmd.Flags())
	return cmd
}

// execute loads configuration, sets up logging and the backend, then runs c.
func (d *Dispatcher) execute(ctx context.Context, c commands.Command, flags *globalFlags, args []string, streams commands.IO) int {
	cfg, err := config.New(flags.configDir)
	if err != nil {
		output.Errorf(streams.Err, "%s", err)
		return exitcode.UserError
	}
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug

	logger, closeLog, logErr := logging.New(logging.Options{
		Path:    cfg.LogPath,
		Debug:   cfg.Debug,
		Console: streams.Err,
	})
	defer closeLog()
	if logErr != nil {
		logger.Debug().Err(logErr).Msg("log file unavailable")
	}
	logger = logger.With().Str("command", c.Name()).Logger()
	ctx = logger.WithContext(ctx)

	var svc service.Service
	if c.Access() != commands.Local {
		if c.Access() == commands.Authenticated {
			if code, ok := checkSession(ctx, cfg, streams); !ok {
				return code
			}
		}
		if d.factory == nil {
			output.Errorf(streams.Err, "backend error: no backend configured")
			return exitcode.BackendError
		}
		svc, err = d.factory(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create backend")
			output.Errorf(streams.Err, "backend error: %s", err)
			return exitcode.BackendError
		}
	}

	start := time.Now()
	code := c.Run(ctx, cfg, svc, args, streams)
	logger.Info().
		Int("exit_code", code).
		Dur("elapsed", time.Since(start)).
		Msg("command finished")
	return code
}

// checkSession rejects a missing or expired session before any request.
func checkSession(ctx context.Context, cfg *config.Config, streams commands.IO) (int, bool) {
	token, err := cfg.LoadToken()
	if err != nil {
		if errors.Is(err, config.ErrNoToken) {
			output.Errorf(streams.Err, "not logged in (run: %s login)", config.AppName)
		} else {
			output.Errorf(streams.Err, "auth error: %s", err)
		}
		return exitcode.AuthError, false
	}
	if err := auth.Check(token, time.Now()); err != nil {
		zerolog.Ctx(ctx).Info().Time("expiry", token.Expiry).Msg("stored session expired")
		output.Errorf(streams.Err, "%s (run: %s login)", err, config.AppName)
		return exitcode.AuthError, false
	}
	return exitcode.Success, true
}
