package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// terminal is the workspace's Confirmer and Notifier on a text console.
type terminal struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
	failures  []error
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question; anything but "y" or "yes" declines.
func (t *terminal) Confirm(prompt string) bool {
	if t.assumeYes {
		return true
	}
	fmt.Fprintf(t.out, "%s [y/N] ", prompt)
	answer, _ := t.readLine()
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func (t *terminal) Success(msg string) {
	if msg != "" {
		fmt.Fprintln(t.out, msg)
	}
}

func (t *terminal) Failure(err error) {
	t.failures = append(t.failures, err)
	fmt.Fprintln(t.out, "Error:", err)
}

// reported tells whether err, or an error it wraps, was already shown.
func (t *terminal) reported(err error) bool {
	for _, f := range t.failures {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}

// prompt reads one line after showing label.
func (t *terminal) prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	return t.readLine()
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
