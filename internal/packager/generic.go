package packager

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

// GenericStrategy packages without external help: strip binaries in place,
// drop build-system metadata, embed the package manifest and environment
// helper, then archive with the root renamed to the generated package name.
type GenericStrategy struct {
	Runner    runner.Runner
	OutputDir string
	Timeout   time.Duration

	// StripJobs bounds parallel strip invocations; 0 means 4.
	StripJobs int
}

// Name identifies the strategy in logs and results.
func (g *GenericStrategy) Name() string { return "generic" }

// Available is always true; generic packaging is the chain's last resort.
func (g *GenericStrategy) Available() bool { return true }

// Package produces the compressed archive and returns its path.
func (g *GenericStrategy) Package(ctx context.Context, artifact models.BuildArtifact, m models.PackageManifest) (string, error) {
	if err := g.stripBinaries(ctx, artifact); err != nil {
		return "", err
	}
	if err := g.cleanMetadata(artifact); err != nil {
		return "", err
	}
	if err := writeBuildInfo(artifact, m); err != nil {
		return "", err
	}
	if err := writeEnvHelper(artifact, m); err != nil {
		return "", err
	}

	out := archivePath(g.OutputDir, m)
	slog.Info("creating archive", "path", out)
	if err := CreateArchive(artifact.InstallDir, m.RootDirName(), out); err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	return out, nil
}

// stripBinaries strips every unstripped executable under bin/ and lib/.
// Individual failures are warnings; the run never fails on a single strip.
func (g *GenericStrategy) stripBinaries(ctx context.Context, artifact models.BuildArtifact) error {
	var candidates []string
	for _, sub := range []string{"bin", "lib"} {
		root := filepath.Join(artifact.InstallDir, sub)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				candidates = append(candidates, path)
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("walking %s: %w", root, err)
		}
	}

	jobs := g.StripJobs
	if jobs <= 0 {
		jobs = 4
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for _, path := range candidates {
		path := path
		eg.Go(func() error {
			g.stripOne(ctx, path)
			return nil
		})
	}
	return eg.Wait()
}

// stripOne strips a single file if type introspection says it still carries
// symbols. Anything already stripped, or not a recognized binary, is left
// alone.
func (g *GenericStrategy) stripOne(ctx context.Context, path string) {
	res, err := g.Runner.Run(ctx, "file", []string{"--brief", path}, runner.Options{Timeout: g.Timeout})
	if err != nil || res.ExitCode != 0 {
		slog.Warn("type introspection failed, leaving file alone", "path", path, "error", err)
		return
	}
	desc := res.Stdout
	if !strings.Contains(desc, "not stripped") {
		return
	}

	res, err = g.Runner.Run(ctx, "strip", []string{path}, runner.Options{Timeout: g.Timeout})
	if err != nil || res.ExitCode != 0 {
		slog.Warn("strip failed, keeping unstripped binary", "path", path,
			"error", err, "stderr", strings.TrimSpace(res.Stderr))
		return
	}
	slog.Debug("stripped", "path", path)
}

// cleanMetadata removes build-system droppings that have no place in a
// distributable package.
func (g *GenericStrategy) cleanMetadata(artifact models.BuildArtifact) error {
	if err := os.RemoveAll(filepath.Join(artifact.InstallDir, "lib", "cmake")); err != nil {
		return fmt.Errorf("removing cmake metadata: %w", err)
	}
	entries, err := os.ReadDir(artifact.InstallDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cmake") {
			if err := os.Remove(filepath.Join(artifact.InstallDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func archivePath(outputDir string, m models.PackageManifest) string {
	return filepath.Join(outputDir, m.ArchiveName())
}
