package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"rsm/internal/auth"
	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/output"
	"rsm/internal/service"
)

func init() {
	Register(&SignupCmd{})
	Register(&LoginCmd{})
	Register(&WhoamiCmd{})
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	username  string
	ntfyToken string
	ntfyTopic string
	flags     *pflag.FlagSet
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account" }
func (c *SignupCmd) Usage() string     { return "" }
func (c *SignupCmd) Access() Access    { return Anonymous }

func (c *SignupCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.username, "username", "u", "", "account name (prompted when omitted)")
	fs.StringVar(&c.ntfyToken, "ntfy-token", "", "ntfy access token for reminders")
	fs.StringVar(&c.ntfyTopic, "ntfy-topic", "", "ntfy topic for reminders")
	c.flags = fs
}

func (c *SignupCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	if len(args) > 0 {
		return usageError(streams.Err, "unexpected argument: %s", args[0])
	}

	prompter := output.NewPrompter(streams.In, streams.Out)
	creds, code := credentials(prompter, c.username, streams)
	if code != exitcode.Success {
		return code
	}

	req := service.Signup{Credentials: creds, Timezone: config.SystemTimezone()}
	if c.flags != nil && (c.flags.Changed("ntfy-token") || c.flags.Changed("ntfy-topic")) {
		req.NtfyToken = optional(c.ntfyToken)
		req.NtfyTopic = optional(c.ntfyTopic)
	} else {
		ok, err := prompter.Confirm("Do you want to configure notifications?")
		if err != nil {
			return usageError(streams.Err, "%v", err)
		}
		if ok {
			token, err := prompter.Ask("Enter token")
			if err != nil {
				return usageError(streams.Err, "%v", err)
			}
			topic, err := prompter.Ask("Enter topic")
			if err != nil {
				return usageError(streams.Err, "%v", err)
			}
			req.NtfyToken = optional(token)
			req.NtfyTopic = optional(topic)
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("username", creds.Username).
		Str("timezone", req.Timezone).
		Bool("ntfy", req.NtfyTopic != nil).
		Msg("signing up")

	msg, err := svc.Signup(ctx, req)
	if err != nil {
		return report(ctx, streams.Err, err)
	}
	return done(cfg, streams.Out, msg)
}

// LoginCmd implements the login command.
type LoginCmd struct {
	username string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in and store the session" }
func (c *LoginCmd) Usage() string     { return "" }
func (c *LoginCmd) Access() Access    { return Anonymous }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.username, "username", "u", "", "account name (prompted when omitted)")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	if len(args) > 0 {
		return usageError(streams.Err, "unexpected argument: %s", args[0])
	}

	creds, code := credentials(output.NewPrompter(streams.In, streams.Out), c.username, streams)
	if code != exitcode.Success {
		return code
	}

	session, err := svc.Login(ctx, creds)
	if err != nil {
		return report(ctx, streams.Err, err)
	}

	token := auth.NewToken(session.Token)
	if err := cfg.SaveToken(token); err != nil {
		output.Errorf(streams.Err, "failed to save token: %v", err)
		return exitcode.AuthError
	}

	zerolog.Ctx(ctx).Info().
		Str("username", creds.Username).
		Time("expires", token.Expiry).
		Msg("session stored")

	if cfg.Quiet {
		return exitcode.Success
	}
	if session.Message != "" {
		output.Message(streams.Out, session.Message)
	} else {
		fmt.Fprintf(streams.Out, "logged in as %s\n", creds.Username)
	}
	return exitcode.Success
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the stored session" }
func (c *WhoamiCmd) Usage() string     { return "" }
func (c *WhoamiCmd) Access() Access    { return Local }

func (c *WhoamiCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, streams IO) int {
	token, err := cfg.LoadToken()
	if err != nil {
		if errors.Is(err, config.ErrNoToken) {
			return report(ctx, streams.Err, err)
		}
		output.Errorf(streams.Err, "%v", err)
		return exitcode.AuthError
	}

	claims, err := auth.Inspect(token.AccessToken)
	if err != nil {
		fmt.Fprintln(streams.Out, "logged in (opaque session token)")
		return exitcode.Success
	}

	who := claims.Subject
	if who == "" {
		who = "(unknown user)"
	}
	switch {
	case claims.ExpiresAt.IsZero():
		fmt.Fprintf(streams.Out, "%s\n", who)
	case auth.Check(token, time.Now()) != nil:
		fmt.Fprintf(streams.Out, "%s (session expired %s)\n", who, claims.ExpiresAt.Local().Format(time.DateTime))
		return exitcode.AuthError
	default:
		fmt.Fprintf(streams.Out, "%s (session expires %s)\n", who, claims.ExpiresAt.Local().Format(time.DateTime))
	}
	return exitcode.Success
}

// credentials prompts for whatever was not given on the command line.
func credentials(p *output.Prompter, username string, streams IO) (service.Credentials, int) {
	var err error
	if username == "" {
		if username, err = p.Ask("Enter username"); err != nil {
			return service.Credentials{}, usageError(streams.Err, "%v", err)
		}
	}
	if username == "" {
		return service.Credentials{}, usageError(streams.Err, "username required")
	}

	password, err := p.Ask("Enter password")
	if err != nil {
		return service.Credentials{}, usageError(streams.Err, "%v", err)
	}
	if password == "" {
		return service.Credentials{}, usageError(streams.Err, "password required")
	}
	return service.Credentials{Username: username, Password: password}, exitcode.Success
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
