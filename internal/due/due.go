// Package due resolves user-typed due dates into absolute timestamps.
//
// Two forms are accepted: "YYYY-MM-DD HH:MM" and "HH:MM". A bare time that
// is already past today rolls forward to tomorrow.
package due

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the human-readable form of a due date.
const DisplayLayout = "2006-01-02 15:04"

var (
	// ErrInvalidFormat means the input is neither one nor two tokens.
	ErrInvalidFormat = errors.New("expected 'HH:MM' or 'YYYY-MM-DD HH:MM'")

	// ErrInvalidDate means the date half is not three hyphen-separated numbers.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrInvalidTime means the time half is not two colon-separated numbers.
	ErrInvalidTime = errors.New("invalid time, expected HH:MM")

	// ErrOutOfRange means the input is well formed but names no calendar instant.
	ErrOutOfRange = errors.New("date or time out of range")
)

var (
	dateShape = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)$`)
	timeShape = regexp.MustCompile(`^(\d+):(\d+)$`)
)

// ParseError reports which input failed and why.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid due %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Due is a fully resolved point in time.
type Due struct {
	time.Time
}

// String formats d as "YYYY-MM-DD HH:MM".
func (d Due) String() string {
	return d.Format(DisplayLayout)
}

// MarshalJSON encodes d as RFC 3339 with its offset.
func (d Due) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.RFC3339))
}

// Parse resolves input against the current local time.
func Parse(input string) (Due, error) {
	return Resolve(input, time.Now())
}

// Resolve resolves input against now. The result is in now's location.
func Resolve(input string, now time.Time) (Due, error) {
	fields := strings.Fields(input)
	switch len(fields) {
	case 2:
		return resolveFull(input, fields[0], fields[1], now.Location())
	case 1:
		return resolveTime(input, fields[0], now)
	default:
		return Due{}, &ParseError{Input: input, Err: ErrInvalidFormat}
	}
}

func resolveFull(input, date, clock string, loc *time.Location) (Due, error) {
	dm := dateShape.FindStringSubmatch(date)
	if dm == nil {
		return Due{}, &ParseError{Input: input, Err: ErrInvalidDate}
	}
	tm := timeShape.FindStringSubmatch(clock)
	if tm == nil {
		return Due{}, &ParseError{Input: input, Err: ErrInvalidTime}
	}

	year, month, day, ok := atoi3(dm[1], dm[2], dm[3])
	if !ok || !validDate(year, month, day) {
		return Due{}, &ParseError{Input: input, Err: ErrOutOfRange}
	}
	hour, minute, ok := clockOf(tm)
	if !ok {
		return Due{}, &ParseError{Input: input, Err: ErrOutOfRange}
	}

	return Due{time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)}, nil
}

func resolveTime(input, clock string, now time.Time) (Due, error) {
	tm := timeShape.FindStringSubmatch(clock)
	if tm == nil {
		return Due{}, &ParseError{Input: input, Err: ErrInvalidTime}
	}
	hour, minute, ok := clockOf(tm)
	if !ok {
		return Due{}, &ParseError{Input: input, Err: ErrOutOfRange}
	}

	year, month, day := now.Date()
	at := time.Date(year, month, day, hour, minute, 0, 0, now.Location())
	if at.Before(now) {
		year, month, day = now.AddDate(0, 0, 1).Date()
		at = time.Date(year, month, day, hour, minute, 0, 0, now.Location())
	}
	return Due{at}, nil
}

func clockOf(m []string) (hour, minute int, ok bool) {
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m[2])
	if err != nil || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atoi3(a, b, c string) (int, int, int, bool) {
	x, err1 := strconv.Atoi(a)
	y, err2 := strconv.Atoi(b)
	z, err3 := strconv.Atoi(c)
	return x, y, z, err1 == nil && err2 == nil && err3 == nil
}

// validDate rejects dates that time.Date would normalize, e.g. Feb 30.
func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}
