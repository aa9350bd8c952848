// Package response classifies raw server bodies into typed outcomes.
package response

import "fmt"

// Kind is an error code reported by the server in the error envelope.
// Codes outside the known set are kept verbatim.
type Kind string

// Known error codes.
const (
	LoginFail             Kind = "LOGIN_FAIL"
	UserNotFound          Kind = "USER_NOT_FOUND"
	UsernameAlreadyExists Kind = "USERNAME_ALREADY_EXISTS"
	TableAlreadyExists    Kind = "TABLE_ALREADY_EXISTS"
	NoAuth                Kind = "NO_AUTH"
	InvalidAuth           Kind = "INVALID_AUTH"
	InvalidParams         Kind = "INVALID_PARAMS"
	DueNotSupported       Kind = "DUE_NOT_SUPPORTED"
	InvalidQueryParams    Kind = "INVALID_QUERY_PARAMS"
	ServiceError          Kind = "SERVICE_ERROR"
)

var labels = map[Kind]string{
	LoginFail:             "login failed: wrong username or password",
	UserNotFound:          "user not found",
	UsernameAlreadyExists: "username already taken",
	TableAlreadyExists:    "a table with this name already exists",
	NoAuth:                "missing authentication token",
	InvalidAuth:           "invalid or expired authentication token",
	InvalidParams:         "invalid parameters",
	DueNotSupported:       "this table does not support due dates",
	InvalidQueryParams:    "invalid query parameters",
	ServiceError:          "the service failed to process the request",
}

// ParseKind maps a server code to a Kind. It never fails.
func ParseKind(code string) Kind {
	return Kind(code)
}

// Known reports whether k belongs to the closed set of codes.
func (k Kind) Known() bool {
	_, ok := labels[k]
	return ok
}

// Label returns the human-readable description of k.
func (k Kind) Label() string {
	if label, ok := labels[k]; ok {
		return label
	}
	return fmt.Sprintf("unrecognized server error: %s", string(k))
}

// IsAuth reports whether k means the caller must log in again.
func (k Kind) IsAuth() bool {
	switch k {
	case LoginFail, NoAuth, InvalidAuth:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
