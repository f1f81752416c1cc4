// Package verify smoke-tests a built toolchain: the mandatory binaries must
// exist and the compiler must build and run a trivial program. This is
// deliberately shallow; a full compiler test suite is not this pipeline's
// job.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

// requiredBinaries are the three binaries every usable artifact must carry:
// the compiler driver, the C++ driver and the linker.
var requiredBinaries = []string{"clang", "clang++", "ld.lld"}

// smokeSource exercises dynamic containers and owning smart pointers, enough
// to prove the C++ standard library links and runs.
const smokeSource = `#include <memory>
#include <vector>

int main() {
    std::vector<std::unique_ptr<int>> xs;
    for (int i = 0; i < 8; i++) {
        xs.push_back(std::make_unique<int>(i));
    }
    int sum = 0;
    for (const auto& x : xs) {
        sum += *x;
    }
    return sum == 28 ? 0 : 1;
}
`

// Verifier checks a build artifact for gross correctness.
type Verifier struct {
	Runner  runner.Runner
	Timeout time.Duration
}

// Verify asserts the mandatory binaries and runs the smoke program using the
// artifact's compiler.
func (v *Verifier) Verify(ctx context.Context, artifact models.BuildArtifact) error {
	if err := v.VerifyBinDir(ctx, artifact.BinDir()); err != nil {
		return models.NewStageError(models.ErrVerification, err)
	}
	return nil
}

// VerifyBinDir runs the checks against an arbitrary bin directory. The
// packager self-test reuses this against an extracted archive.
func (v *Verifier) VerifyBinDir(ctx context.Context, binDir string) error {
	for _, name := range requiredBinaries {
		path := filepath.Join(binDir, name)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("required binary %s missing: %w", name, err)
		}
		if info.IsDir() || info.Mode()&0111 == 0 {
			return fmt.Errorf("required binary %s is not executable", name)
		}
	}

	v.reportVersions(ctx, binDir)
	return v.runSmokeTest(ctx, binDir)
}

// reportVersions logs the toolchain's own identification; informational only.
func (v *Verifier) reportVersions(ctx context.Context, binDir string) {
	for _, name := range []string{"clang", "ld.lld"} {
		res, err := v.Runner.Run(ctx, filepath.Join(binDir, name), []string{"--version"},
			runner.Options{Timeout: v.Timeout})
		if err != nil || res.ExitCode != 0 {
			slog.Warn("could not read toolchain version", "binary", name, "error", err)
			continue
		}
		line, _, _ := strings.Cut(res.Stdout, "\n")
		slog.Info("toolchain version", "binary", name, "version", strings.TrimSpace(line))
	}
}

func (v *Verifier) runSmokeTest(ctx context.Context, binDir string) error {
	scratch, err := os.MkdirTemp("", "clangforge-smoke-*")
	if err != nil {
		return fmt.Errorf("creating smoke scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	src := filepath.Join(scratch, "smoke.cpp")
	bin := filepath.Join(scratch, "smoke")
	if err := os.WriteFile(src, []byte(smokeSource), 0644); err != nil {
		return fmt.Errorf("writing smoke source: %w", err)
	}

	slog.Info("compiling smoke program", "compiler", filepath.Join(binDir, "clang++"))
	res, err := v.Runner.Run(ctx, filepath.Join(binDir, "clang++"),
		[]string{"-std=c++17", "-stdlib=libc++", "-O2", src, "-o", bin},
		runner.Options{Timeout: v.Timeout})
	if err != nil {
		return fmt.Errorf("smoke compile: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("smoke compile exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	slog.Info("running smoke program")
	res, err = v.Runner.Run(ctx, bin, nil, runner.Options{Timeout: v.Timeout})
	if err != nil {
		return fmt.Errorf("smoke run: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("smoke program exited %d", res.ExitCode)
	}

	return nil
}
