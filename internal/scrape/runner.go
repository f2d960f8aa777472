package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ExecError reports a failed scraper invocation for one account. The
// orchestrator treats it as recoverable: skip the account, keep going.
type ExecError struct {
	Handle   string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *ExecError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("scraper timed out for %q", e.Handle)
	}
	return fmt.Sprintf("scraper exited %d for %q: %s", e.ExitCode, e.Handle, e.Stderr)
}

type Config struct {
	Command string
	Args    []string
	Timeout time.Duration
	Env     map[string]string
}

// Runner invokes the external scraping tool as a subprocess, one call
// per account. It has no side effects beyond the subprocess itself.
type Runner struct {
	command string
	args    []string
	timeout time.Duration
	env     []string
	logger  *slog.Logger
}

func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	return &Runner{
		command: cfg.Command,
		args:    cfg.Args,
		timeout: cfg.Timeout,
		env:     env,
		logger:  logger.With("component", "scraper"),
	}
}

// Fetch runs the scraper for one handle and returns its raw stdout.
// The subprocess is killed when the timeout elapses; a timeout is
// reported the same way as a non-zero exit.
func (r *Runner) Fetch(ctx context.Context, handle string, maxItems int) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(r.args)+2)
	args = append(args, r.args...)
	args = append(args, handle, strconv.Itoa(maxItems))

	cmd := exec.CommandContext(ctx, r.command, args...)
	cmd.Env = r.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		execErr := &ExecError{
			Handle:   handle,
			ExitCode: -1,
			Stderr:   truncate(stderr.String(), 1024),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		return "", execErr
	}

	r.logger.Debug("scraper finished",
		"handle", handle,
		"max_items", maxItems,
		"stdout_bytes", stdout.Len(),
		"duration", time.Since(start),
	)

	return stdout.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
