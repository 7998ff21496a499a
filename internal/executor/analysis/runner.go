package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/cuongbtq/tool-sidecar/internal/executor/domain"
)

// patternPlaceholder in the argument list is replaced by the pattern name
const patternPlaceholder = "{pattern}"

// PatternRunner runs one named analysis pattern over text
type PatternRunner interface {
	Available() bool
	RunPattern(ctx context.Context, text, pattern string, timeout time.Duration) (string, error)
}

// CommandRunner runs patterns through an external command. The text is
// written to stdin and the markdown result is read from stdout.
type CommandRunner struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewCommandRunner creates a runner for command. args may contain the
// {pattern} placeholder; when it does not, "--pattern <name>" is appended.
func NewCommandRunner(command string, args []string, logger *slog.Logger) *CommandRunner {
	return &CommandRunner{command: command, args: args, logger: logger}
}

// Available reports whether the command can be found
func (r *CommandRunner) Available() bool {
	_, err := exec.LookPath(r.command)
	return err == nil
}

// RunPattern runs pattern with a hard timeout. A non-zero exit, a timeout
// or empty output is a failure.
func (r *CommandRunner) RunPattern(ctx context.Context, text, pattern string, timeout time.Duration) (string, error) {
	path, err := exec.LookPath(r.command)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRunnerUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, r.buildArgs(pattern)...)
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %s after %s", domain.ErrPatternTimeout, pattern, timeout)
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 512 {
			detail = detail[:512]
		}
		if detail != "" {
			return "", fmt.Errorf("%w: %s: %v: %s", domain.ErrPatternFailed, pattern, err, detail)
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrPatternFailed, pattern, err)
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return "", fmt.Errorf("%w: %s returned empty output", domain.ErrPatternFailed, pattern)
	}

	r.logger.Debug("Pattern completed",
		slog.String("pattern", pattern),
		slog.Duration("duration", time.Since(start)),
		slog.Int("output_length", len(output)),
	)

	return output, nil
}

func (r *CommandRunner) buildArgs(pattern string) []string {
	args := make([]string, 0, len(r.args)+2)
	substituted := false
	for _, arg := range r.args {
		if strings.Contains(arg, patternPlaceholder) {
			arg = strings.ReplaceAll(arg, patternPlaceholder, pattern)
			substituted = true
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, "--pattern", pattern)
	}
	return args
}
