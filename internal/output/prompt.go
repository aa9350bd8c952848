package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxAttempts bounds how often a yes/no question is repeated.
const maxAttempts = 3

// ErrNoAnswer is returned when input ends before a question is answered.
var ErrNoAnswer = errors.New("no answer given")

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(p.out)
		return "", ErrNoAnswer
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a [Y/n] question. An empty answer means yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	for i := 0; i < maxAttempts; i++ {
		answer, err := p.Ask(question + " [Y/n]")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Invalid input. Please respond with 'Y' or 'n'.")
	}
	return false, ErrNoAnswer
}
