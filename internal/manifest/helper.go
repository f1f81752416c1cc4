package manifest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

// helperTool is the configuration-fetch helper that understands the DEPS
// format natively.
const helperTool = "gclient"

// HelperStrategy asks gclient for the pinned clang revision variable.
type HelperStrategy struct {
	Runner  runner.Runner
	Timeout time.Duration
}

// Name identifies the strategy in logs and results.
func (s *HelperStrategy) Name() string { return "gclient" }

// Extract runs `gclient getdep` against the manifest and returns its trimmed
// output. A missing helper, a non-zero exit or empty output all defer to the
// next strategy.
func (s *HelperStrategy) Extract(ctx context.Context, path string) (models.RevisionSpec, error) {
	if _, err := s.Runner.LookPath(helperTool); err != nil {
		return "", fmt.Errorf("helper not available: %w", err)
	}

	res, err := s.Runner.Run(ctx, helperTool,
		[]string{"getdep", "--deps-file", path, "--var", "clang_revision"},
		runner.Options{Timeout: s.Timeout})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("gclient getdep exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	token := strings.TrimSpace(res.Stdout)
	if token == "" {
		return "", fmt.Errorf("gclient getdep produced no revision")
	}
	return models.RevisionSpec(token), nil
}
