package packager

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

// SpecializedStrategy delegates packaging to the project's own packaging
// script when it exists.
type SpecializedStrategy struct {
	Runner    runner.Runner
	Script    string
	BuildDir  string
	OutputDir string
	Timeout   time.Duration
}

// Name identifies the strategy in logs and results.
func (s *SpecializedStrategy) Name() string { return "specialized" }

// Available reports whether the packaging script is present.
func (s *SpecializedStrategy) Available() bool {
	if s.Script == "" {
		return false
	}
	_, err := os.Stat(s.Script)
	return err == nil
}

// Package invokes the packaging script with explicit directory arguments and
// expects it to leave the named archive in the output dir.
func (s *SpecializedStrategy) Package(ctx context.Context, artifact models.BuildArtifact, m models.PackageManifest) (string, error) {
	res, err := s.Runner.Run(ctx, "python3", []string{
		s.Script,
		"--build-dir", s.BuildDir,
		"--install-dir", artifact.InstallDir,
		"--output-dir", s.OutputDir,
	}, runner.Options{Timeout: s.Timeout})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("packaging script exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	expected := archivePath(s.OutputDir, m)
	if _, err := os.Stat(expected); err != nil {
		return "", fmt.Errorf("packaging script did not produce %s: %w", expected, err)
	}
	return expected, nil
}
