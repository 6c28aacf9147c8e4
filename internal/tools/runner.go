// Package tools implements the page capabilities on top of external command-line tools
// (unoconv or LibreOffice, and the poppler utilities).
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spherical/slide-converter/internal/observability"
)

// Runner executes an external command and returns its standard output.
// RunIn does the same with dir as the working directory.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	RunIn(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ToolError reports an abnormal tool completion together with its stderr
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v, output: %s", e.Tool, e.Err, stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec, killing them when ctx ends
type ExecRunner struct {
	logger *observability.Logger
}

// NewExecRunner creates a runner that logs every invocation at debug level
func NewExecRunner(logger *observability.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes name with args
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.RunIn(ctx, "", name, args...)
}

// RunIn executes name with args inside dir
func (r *ExecRunner) RunIn(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	r.logger.Debug().
		Str("tool", name).
		Strs("args", args).
		Str("dir", dir).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("Tool finished")

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return stdout.Bytes(), &ToolError{Tool: name, Err: err, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}
