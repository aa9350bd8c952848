package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownFormat is reported when a body is neither an error envelope nor
// the expected success envelope. It means client and server disagree on the
// contract and is never a domain outcome.
var ErrUnknownFormat = errors.New("unknown response format")

// excerptLen bounds the body excerpt kept for logging.
const excerptLen = 200

// Failure is the error variant of an outcome.
type Failure struct {
	RequestID string
	Kind      Kind
}

func (f *Failure) Error() string {
	if f.RequestID == "" {
		return f.Kind.Label()
	}
	return fmt.Sprintf("%s (request %s)", f.Kind.Label(), f.RequestID)
}

// FormatError wraps ErrUnknownFormat with the decoder cause.
type FormatError struct {
	Excerpt string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return ErrUnknownFormat.Error()
	}
	return fmt.Sprintf("%s: %v", ErrUnknownFormat, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrUnknownFormat }

// Outcome holds exactly one of a success value or a Failure.
type Outcome[T any] struct {
	Value   T
	Failure *Failure
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool {
	return o.Failure == nil
}

// Result returns the value, or the failure as an error.
func (o Outcome[T]) Result() (T, error) {
	if o.Failure != nil {
		var zero T
		return zero, o.Failure
	}
	return o.Value, nil
}

type errorEnvelope struct {
	Error *struct {
		ReqUUID *string `json:"req_uuid"`
		Type    *string `json:"type"`
	} `json:"error"`
}

type successEnvelope struct {
	Res json.RawMessage `json:"res"`
}

// Classify decodes body into an outcome whose success payload is the "res"
// member decoded as T. The error envelope is probed first; fields unknown to
// either shape are ignored.
func Classify[T any](body []byte) (Outcome[T], error) {
	if f, ok := probeFailure(body); ok {
		return Outcome[T]{Failure: f}, nil
	}

	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Outcome[T]{}, formatError(body, err)
	}
	if len(env.Res) == 0 || bytes.Equal(env.Res, []byte("null")) {
		return Outcome[T]{}, formatError(body, errors.New(`missing "res" member`))
	}

	var value T
	if err := json.Unmarshal(env.Res, &value); err != nil {
		return Outcome[T]{}, formatError(body, err)
	}
	return Outcome[T]{Value: value}, nil
}

func probeFailure(body []byte) (*Failure, bool) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	if env.Error == nil || env.Error.ReqUUID == nil || env.Error.Type == nil {
		return nil, false
	}
	return &Failure{
		RequestID: normalizeRequestID(*env.Error.ReqUUID),
		Kind:      ParseKind(*env.Error.Type),
	}, true
}

// normalizeRequestID prints UUIDs in canonical form and leaves anything else
// untouched.
func normalizeRequestID(raw string) string {
	id, err := uuid.Parse(raw)
	if err != nil {
		return raw
	}
	return id.String()
}

func formatError(body []byte, err error) *FormatError {
	excerpt := string(body)
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen] + "..."
	}
	return &FormatError{Excerpt: excerpt, Err: err}
}
