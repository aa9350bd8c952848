package commands

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"rsm/internal/auth"
	"rsm/internal/config"
	"rsm/internal/exitcode"
	"rsm/internal/output"
	"rsm/internal/response"
)

// protocolMessage is all the user sees of a response the client cannot
// decode. Details go to the log.
const protocolMessage = "internal: unexpected response from server"

// report prints err and maps it to an exit code.
func report(ctx context.Context, errOut io.Writer, err error) int {
	var failure *response.Failure
	switch {
	case errors.As(err, &failure):
		output.Errorf(errOut, "%s", failure)
		if failure.Kind.IsAuth() {
			return exitcode.AuthError
		}
		return exitcode.BackendError

	case errors.Is(err, response.ErrUnknownFormat):
		zerolog.Ctx(ctx).Error().Err(err).Msg("response could not be classified")
		output.Errorf(errOut, protocolMessage)
		return exitcode.ProtocolError

	case errors.Is(err, config.ErrNoToken):
		output.Errorf(errOut, "not logged in (run: rsm login)")
		return exitcode.AuthError

	case errors.Is(err, auth.ErrExpired):
		output.Errorf(errOut, "%v (run: rsm login)", err)
		return exitcode.AuthError

	case errors.Is(err, context.Canceled):
		output.Errorf(errOut, "cancelled")
		return exitcode.BackendError
	}

	output.Errorf(errOut, "backend error: %v", err)
	return exitcode.BackendError
}

// usageError prints a user error.
func usageError(errOut io.Writer, format string, args ...any) int {
	output.Errorf(errOut, format, args...)
	return exitcode.UserError
}

// done prints the server message unless quiet.
func done(cfg *config.Config, out io.Writer, msg string) int {
	if !cfg.Quiet {
		output.Message(out, msg)
	}
	return exitcode.Success
}
