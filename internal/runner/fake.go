package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Call records one invocation made against a ScriptedRunner.
type Call struct {
	Name string
	Args []string
	Opts Options
}

// Line returns the invocation in shell-like form, handy for test assertions.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type rule struct {
	name     string
	contains string
	fn       func(args []string, opts Options) (Result, error)
}

// ScriptedRunner is a Runner test double. Stubs are matched in registration
// order by command name plus an optional substring of the argument line;
// unmatched invocations succeed with an empty Result.
type ScriptedRunner struct {
	mu      sync.Mutex
	rules   []rule
	missing map[string]bool

	Calls []Call
}

// NewScriptedRunner creates an empty ScriptedRunner.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{missing: make(map[string]bool)}
}

// Stub registers a fixed response for invocations of name whose argument
// line contains argsContains (empty matches all).
func (r *ScriptedRunner) Stub(name, argsContains string, res Result, err error) {
	r.StubFunc(name, argsContains, func([]string, Options) (Result, error) {
		return res, err
	})
}

// StubFunc registers a response function for matching invocations.
func (r *ScriptedRunner) StubFunc(name, argsContains string, fn func(args []string, opts Options) (Result, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{name: name, contains: argsContains, fn: fn})
}

// MarkMissing makes LookPath fail for name.
func (r *ScriptedRunner) MarkMissing(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[name] = true
}

// Run matches the invocation against registered stubs.
func (r *ScriptedRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	r.mu.Lock()
	call := Call{Name: name, Args: append([]string(nil), args...), Opts: opts}
	r.Calls = append(r.Calls, call)
	rules := append([]rule(nil), r.rules...)
	r.mu.Unlock()

	line := call.Line()
	for _, rl := range rules {
		// Stubs match the full command path or its base name, so callers can
		// stub tools run from generated scratch locations.
		if rl.name != name && rl.name != filepath.Base(name) {
			continue
		}
		if rl.contains != "" && !strings.Contains(line, rl.contains) {
			continue
		}
		return rl.fn(args, opts)
	}
	return Result{}, nil
}

// LookPath honors MarkMissing and otherwise resolves to the bare name.
func (r *ScriptedRunner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return name, nil
}

// CallLines returns all recorded invocations in shell-like form.
func (r *ScriptedRunner) CallLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		lines = append(lines, c.Line())
	}
	return lines
}
