// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"encoding/json"
	"fmt"
	"time"

	"rsm/internal/due"
)

// Task is one entry of a table listing. Optional fields are nil when the
// server omitted them.
type Task struct {
	ID          *int64     `json:"id,omitempty"`
	Description string     `json:"description"`
	Group       *string    `json:"group,omitempty"`
	Due         *Timestamp `json:"due,omitempty"`
}

// TableSpec describes a table definition.
type TableSpec struct {
	Name     string `json:"name"`
	HasGroup bool   `json:"has_group"`
	HasDue   bool   `json:"has_due"`
}

// Credentials are the username and password sent on login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup is the registration payload.
type Signup struct {
	Credentials
	NtfyToken *string `json:"ntfy_token"`
	NtfyTopic *string `json:"ntfy_topic"`
	Timezone  string  `json:"timezone"`
}

// Session is what a successful login yields.
type Session struct {
	Token   string
	Message string
}

// TableOptions selects the optional columns of a new table.
type TableOptions struct {
	Due   bool `json:"due"`
	Group bool `json:"group"`
}

// Query narrows a table listing.
type Query struct {
	Group  string
	SortBy string
}

// NewTask is the payload of an added task.
type NewTask struct {
	Description string   `json:"description"`
	Due         *due.Due `json:"due,omitempty"`
	Group       *string  `json:"group,omitempty"`
}

// TaskUpdate carries the fields to change; nil fields are left alone.
type TaskUpdate struct {
	Description *string  `json:"description,omitempty"`
	Due         *due.Due `json:"due,omitempty"`
	Group       *string  `json:"group,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Description == nil && u.Due == nil && u.Group == nil
}

// timestampLayouts are the ISO-8601 forms the server is known to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Timestamp is a server timestamp. Values without an offset are read in the
// local zone.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the known server layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp: %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}
