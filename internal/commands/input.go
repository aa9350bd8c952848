package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLength is the longest description accepted, in characters.
const MaxDescriptionLength = 256

var errEmptyDescription = errors.New("description required")

// lineRange is an inclusive, 1-based range of lines.
type lineRange struct {
	first, last int
}

// parseRange parses "a..b". A single number selects one line.
func parseRange(s string) (lineRange, error) {
	s = strings.TrimSpace(s)
	first, last, isRange := strings.Cut(s, "..")
	if !isRange {
		last = first
	}
	a, errA := strconv.Atoi(strings.TrimSpace(first))
	b, errB := strconv.Atoi(strings.TrimSpace(last))
	if errA != nil || errB != nil {
		return lineRange{}, fmt.Errorf("invalid line range %q, expected N or A..B", s)
	}
	if a < 1 || b < a {
		return lineRange{}, fmt.Errorf("invalid line range %q, lines start at 1 and A must not exceed B", s)
	}
	return lineRange{first: a, last: b}, nil
}

// readDescription reads the selected lines of path and joins them with
// spaces. A zero range selects the whole file.
func readDescription(path string, r lineRange) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		parts []string
		n     int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
		if r.first > 0 && n < r.first {
			continue
		}
		if r.last > 0 && n > r.last {
			break
		}
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			parts = append(parts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	if n == 0 {
		return "", fmt.Errorf("file is empty: %s", path)
	}
	if r.last > n {
		return "", fmt.Errorf("line %d is past the end of %s (%d lines)", r.last, path, n)
	}
	return checkDescription(strings.Join(parts, " "))
}

// checkDescription trims s and enforces the length limit.
func checkDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyDescription
	}
	if n := utf8.RuneCountInString(s); n > MaxDescriptionLength {
		return "", fmt.Errorf("description too long: %d characters, at most %d", n, MaxDescriptionLength)
	}
	return s, nil
}
