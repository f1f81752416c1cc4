// Package builddriver drives the external build system that actually
// produces the toolchain, either by invoking the configuration and build
// tools directly or by delegating to the project's own driver script.
package builddriver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

// Strategy names the invocation strategy in use. The strategy is fixed per
// deployment; there is no automatic fallback between the two inside a run.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategyDelegated Strategy = "delegated"
)

// scrubVars are the ambient configuration-tool variables cleared from the
// delegated driver's environment. The driver bootstraps its own compilers
// and assumes nothing from the host leaks into that setup.
var scrubVars = []string{"CMAKE_", "CC", "CXX", "CFLAGS", "CXXFLAGS", "LDFLAGS"}

// Adapter constructs a build configuration and invokes the external build
// system, producing the installed artifact at InstallDir.
type Adapter struct {
	Runner     runner.Runner
	Config     models.BuildConfig
	BuildDir   string
	InstallDir string

	// DriverScript selects the delegated strategy when it points at an
	// existing file.
	DriverScript string
	CCacheDir    string

	Timeout time.Duration

	// Output receives streamed build tool output in addition to the captured
	// result (typically a compressed log sink).
	Output io.Writer
}

// Strategy reports which invocation strategy this adapter will use.
func (a *Adapter) Strategy() Strategy {
	if a.DriverScript != "" {
		if _, err := os.Stat(a.DriverScript); err == nil {
			return StrategyDelegated
		}
	}
	return StrategyDirect
}

// Build runs the selected strategy against the source tree. Any non-zero
// exit from a build step is fatal; re-running after a failure needs no
// manual cleanup because the install dir is always recreated.
func (a *Adapter) Build(ctx context.Context, tree models.SourceTree) (models.BuildArtifact, error) {
	strategy := a.Strategy()
	slog.Info("building toolchain", "strategy", strategy, "source", tree.Dir, "commit", tree.Commit)

	var err error
	switch strategy {
	case StrategyDelegated:
		err = a.buildDelegated(ctx, tree)
	default:
		err = a.buildDirect(ctx, tree)
	}
	if err != nil {
		return models.BuildArtifact{}, models.NewStageError(models.ErrBuild, err)
	}

	return models.BuildArtifact{InstallDir: a.InstallDir}, nil
}

func (a *Adapter) buildDirect(ctx context.Context, tree models.SourceTree) error {
	if err := a.freshInstallDir(); err != nil {
		return err
	}

	configure := append([]string{
		"-S", filepath.Join(tree.Dir, "llvm"),
		"-B", a.BuildDir,
		"-G", "Ninja",
	}, a.Config.CMakeArgs()...)

	if err := a.step(ctx, "cmake", configure, nil); err != nil {
		return err
	}
	if err := a.step(ctx, "ninja", []string{"-C", a.BuildDir}, nil); err != nil {
		return err
	}
	return a.step(ctx, "ninja", []string{"-C", a.BuildDir, "install"}, nil)
}

func (a *Adapter) buildDelegated(ctx context.Context, tree models.SourceTree) error {
	if err := a.freshInstallDir(); err != nil {
		return err
	}

	args := []string{
		a.DriverScript,
		"--bootstrap",
		"--disable-asserts",
		"--pgo",
		"--without-android",
		"--without-fuchsia",
	}
	env := map[string]string{}
	if a.Config.CCacheLauncher != "" {
		args = append(args, "--with-ccache")
		if a.CCacheDir != "" {
			env["CCACHE_DIR"] = a.CCacheDir
		}
	}

	return a.step(ctx, "python3", args, &runner.Options{
		Dir:           filepath.Dir(a.DriverScript),
		Env:           env,
		ScrubPrefixes: scrubVars,
	})
}

// step runs one build tool invocation and fails on non-zero exit.
func (a *Adapter) step(ctx context.Context, name string, args []string, opts *runner.Options) error {
	o := runner.Options{Timeout: a.Timeout, Stdout: a.Output, Stderr: a.Output}
	if opts != nil {
		o.Dir = opts.Dir
		o.Env = opts.Env
		o.ScrubPrefixes = opts.ScrubPrefixes
	}

	slog.Info("running build step", "cmd", name, "args", strings.Join(args, " "))
	res, err := a.Runner.Run(ctx, name, args, o)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited %d: %s", name, res.ExitCode, tail(res.Stderr, 2048))
	}
	return nil
}

// freshInstallDir recreates the install root so partial state from a failed
// attempt never leaks into the artifact.
func (a *Adapter) freshInstallDir() error {
	if err := os.RemoveAll(a.InstallDir); err != nil {
		return fmt.Errorf("clearing install dir: %w", err)
	}
	if err := os.MkdirAll(a.InstallDir, 0755); err != nil {
		return fmt.Errorf("creating install dir: %w", err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
