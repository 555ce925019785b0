// Package prompt reads answers from the user's terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrClosed is returned when input ends before an answer was given.
var ErrClosed = errors.New("input closed")

type Prompter interface {
	Confirm(question string, defaultYes bool) (bool, error)
	Input(label string) (string, error)
	Secret(label string) (string, error)
	Number(label string, minValue, maxValue int) (int, error)
}

type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewTerminal reads from in and writes questions to out. Secrets are read
// without echo when in is a terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.tty = true
	}
	return t
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) Confirm(question string, defaultYes bool) (bool, error) {
	hint := "[Y/n]"
	if !defaultYes {
		hint = "[y/N]"
	}
	for {
		_, _ = fmt.Fprintf(t.out, "%s %s ", question, hint)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		_, _ = fmt.Fprintln(t.out, "Please answer yes or no.")
	}
}

func (t *Terminal) Input(label string) (string, error) {
	_, _ = fmt.Fprintf(t.out, "%s: ", label)
	return t.readLine()
}

func (t *Terminal) Secret(label string) (string, error) {
	if !t.tty {
		return t.Input(label)
	}
	_, _ = fmt.Fprintf(t.out, "%s: ", label)
	raw, err := term.ReadPassword(t.fd)
	_, _ = fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Number asks until the answer is an integer within [minValue, maxValue].
func (t *Terminal) Number(label string, minValue, maxValue int) (int, error) {
	for {
		answer, err := t.Input(fmt.Sprintf("%s (%d-%d)", label, minValue, maxValue))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= minValue && n <= maxValue {
			return n, nil
		}
		_, _ = fmt.Fprintf(t.out, "Invalid choice. Please enter a number between %d and %d.\n", minValue, maxValue)
	}
}
