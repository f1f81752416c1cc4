package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Result is the structured outcome of one subprocess invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Options configures a subprocess invocation. Env is an overlay applied on
// top of the ambient environment; ScrubPrefixes removes ambient variables
// (exact name or prefix match) before the overlay is applied. The
// orchestrator's own environment is never mutated.
type Options struct {
	Dir           string
	Env           map[string]string
	ScrubPrefixes []string
	Timeout       time.Duration

	// Optional stream targets; captured output is still returned on Result.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes external tools. A non-zero exit is reported via
// Result.ExitCode with a nil error; errors are reserved for failures to run
// at all (missing binary, timeout, cancellation).
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts Options) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates an ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = MergeEnv(os.Environ(), opts.Env, opts.ScrubPrefixes)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, opts.Stdout)
	}
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stderr)
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			res.ExitCode = -1
			return res, fmt.Errorf("%s timed out after %s", name, opts.Timeout)
		}
		res.ExitCode = -1
		return res, fmt.Errorf("running %s: %w", name, err)
	}

	return res, nil
}

// LookPath reports whether name is on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// MergeEnv composes a subprocess environment from the ambient base, a scrub
// list (exact names or prefixes dropped from the base) and an overlay.
// Overlay entries are appended in sorted key order so composition is
// deterministic.
func MergeEnv(base []string, overlay map[string]string, scrubPrefixes []string) []string {
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if scrubbed(name, scrubPrefixes) {
			continue
		}
		if _, ok := overlay[name]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overlay[k])
	}
	return out
}

func scrubbed(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if name == p || (strings.HasSuffix(p, "_") && strings.HasPrefix(name, p)) {
			return true
		}
	}
	return false
}
