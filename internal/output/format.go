// Package output provides the plain-text output and prompts of the CLI.
// Tables are drawn by package render.
package output

import (
	"fmt"
	"io"
	"strings"
)

// OK is printed when the server acknowledges a request without a message.
const OK = "ok"

// Message prints a server message on one line.
func Message(w io.Writer, msg string) {
	fmt.Fprintln(w, normalizeMessage(msg))
}

// Errorf prints an "error: " prefixed line.
func Errorf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}

// normalizeMessage flattens a message for display.
// - Newlines are replaced with spaces
// - Empty or whitespace-only messages become "ok"
func normalizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")

	if strings.TrimSpace(msg) == "" {
		return OK
	}
	return strings.TrimSpace(msg)
}
