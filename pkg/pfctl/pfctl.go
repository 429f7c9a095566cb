package pfctl

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// DefaultPath is where OpenBSD installs pfctl.
const DefaultPath = "/sbin/pfctl"

// Result holds everything one external command invocation produced.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes a single external command and blocks until it
// terminates. An error is returned only when the command could not be
// run at all; a non-zero exit is reported through the Result.
type Runner interface {
	Run(ctx context.Context, program string, args ...string) (Result, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, program string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, err
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

// Client invokes pfctl table operations through a Runner.
type Client struct {
	path   string
	runner Runner
}

// New returns a Client using the pfctl binary at path. An empty path
// selects DefaultPath.
func New(path string, runner Runner) *Client {
	if path == "" {
		path = DefaultPath
	}
	return &Client{path: path, runner: runner}
}

// ListTables runs `pfctl -v -s Tables`, listing every table with its
// flag string.
func (c *Client) ListTables(ctx context.Context) (Result, error) {
	return c.runner.Run(ctx, c.path, "-v", "-s", "Tables")
}

// ShowTable runs `pfctl -t <table> -T show`, emitting the table's
// current entries on stdout.
func (c *Client) ShowTable(ctx context.Context, table string) (Result, error) {
	return c.runner.Run(ctx, c.path, "-t", table, "-T", "show")
}

// ExpireTable runs `pfctl -t <table> -T expire <seconds>`. The seconds
// value is passed through verbatim; pfctl rejects malformed input.
func (c *Client) ExpireTable(ctx context.Context, table, seconds string) (Result, error) {
	return c.runner.Run(ctx, c.path, "-t", table, "-T", "expire", seconds)
}
