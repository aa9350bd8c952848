// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, bad due date, unreadable input file).
	UserError = 1

	// AuthError indicates a missing, expired or rejected session.
	AuthError = 2

	// BackendError indicates a failure reported by the server or the network.
	BackendError = 3

	// ProtocolError indicates a response the client could not make sense of.
	ProtocolError = 4
)
