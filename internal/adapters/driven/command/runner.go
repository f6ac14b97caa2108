// Package command runs external tools such as tesseract and pdftoppm.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Runner implements the interface.
var _ driven.CommandRunner = (*Runner)(nil)

// maxStderr bounds how much stderr is quoted in an error.
const maxStderr = 512

// Runner executes commands with os/exec.
type Runner struct{}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run feeds stdin to the command and returns its stdout. A binary that
// cannot be found wraps domain.ErrToolNotFound.
func (r *Runner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("exec %s %s", name, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "..."
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			return nil, fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
