package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var errStdinUnavailable = errors.New("stdin unavailable")

// passwordPrompt reads secrets line by line from stdin. Echo is switched off
// around each read when stdin is a terminal; piped input is read as is so
// add-dietitian can be scripted.
type passwordPrompt struct {
	out   io.Writer
	stdin *os.File
	lines *bufio.Reader
}

func newPasswordPrompt(out io.Writer, stdin *os.File) *passwordPrompt {
	prompt := &passwordPrompt{out: out, stdin: stdin}
	if stdin != nil {
		prompt.lines = bufio.NewReader(stdin)
	}
	return prompt
}

func (prompt *passwordPrompt) ask(label string) (string, error) {
	if prompt.lines == nil {
		return "", fmt.Errorf("read password: %w", errStdinUnavailable)
	}
	_, _ = fmt.Fprint(prompt.out, label)

	restore, err := disableEcho(prompt.stdin)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	line, err := prompt.lines.ReadString('\n')
	restore()
	_, _ = fmt.Fprintln(prompt.out)

	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
