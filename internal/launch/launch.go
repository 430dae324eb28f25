// Package launch starts the target command with the resolved environment
// substituted for the parent's own, and waits for it to exit.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// ErrAborted reports an operator interrupt while waiting on the child. The
// child is deliberately left running; see Run.
var ErrAborted = errors.New("aborted while waiting for command")

// Split parses a raw command line into argv without invoking a shell.
func Split(raw string) ([]string, error) {
	argv, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("command line is empty")
	}
	return argv, nil
}

// Options wires the child's stdio.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts argv with environ as the child's entire environment. The child
// inherits nothing from the parent's ambient environment; reproducibility of
// the resolved table is the point. Run blocks until the child exits and
// returns its exit code.
//
// If ctx is canceled while waiting (operator interrupt), Run returns
// ErrAborted without killing the child. The interrupt reaches the child
// through the shared terminal process group; whatever the child did up to
// that point stands.
func Run(ctx context.Context, argv []string, environ []string, opts Options) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("command line is empty")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = environ
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %q: %w", strings.Join(argv, " "), err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-ctx.Done():
		return 0, ErrAborted
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if err != nil {
			return 0, fmt.Errorf("wait for %q: %w", argv[0], err)
		}
		return 0, nil
	}
}
