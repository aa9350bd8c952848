// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// Commands never talk HTTP directly.
//
// Errors are *response.Failure for server-reported failures,
// *response.FormatError when the body matched no known shape, and transport
// errors otherwise. Methods returning a string return the server's message.
type Service interface {
	// Signup registers a new account.
	Signup(ctx context.Context, s Signup) (string, error)

	// Login exchanges credentials for a session token.
	Login(ctx context.Context, c Credentials) (Session, error)

	// Logout invalidates the current session on the server.
	Logout(ctx context.Context) (string, error)

	// CreateTable creates a table with the given optional columns.
	CreateTable(ctx context.Context, name string, opts TableOptions) (string, error)

	// DropTable deletes a table and its tasks.
	DropTable(ctx context.Context, name string) (string, error)

	// ListTables returns the definitions of all tables.
	ListTables(ctx context.Context) ([]TableSpec, error)

	// ListTasks returns the contents of a table.
	ListTasks(ctx context.Context, table string, q Query) ([]Task, error)

	// AddTask appends a task to a table.
	AddTask(ctx context.Context, table string, t NewTask) (string, error)

	// RemoveTask deletes a task by ID.
	RemoveTask(ctx context.Context, table string, id int64) (string, error)

	// UpdateTask changes the non-nil fields of a task.
	UpdateTask(ctx context.Context, table string, id int64, u TaskUpdate) (string, error)

	// ClearTable deletes every task of a table.
	ClearTable(ctx context.Context, table string) (string, error)
}
