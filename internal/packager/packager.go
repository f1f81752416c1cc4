// Package packager turns a verified install tree into a distributable,
// checksummed archive. A project-specific packaging tool is preferred when
// present; otherwise a generic strip-clean-archive strategy runs. Either
// way the fresh archive is extracted and smoke-tested before the run is
// declared good.
package packager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/verify"
)

// Strategy is one way of producing the archive. Strategies are tried in
// order; the first success wins and is recorded for observability.
type Strategy interface {
	Name() string
	Available() bool
	Package(ctx context.Context, artifact models.BuildArtifact, m models.PackageManifest) (string, error)
}

// Archive is the packaging outcome.
type Archive struct {
	Path         string
	ChecksumPath string
	Strategy     string
}

// Packager runs the strategy chain and the strategy-independent self-test.
type Packager struct {
	Strategies []Strategy
	Verifier   *verify.Verifier
	OutputDir  string
}

// Package produces the archive, writes its checksum companion and self-tests
// the result.
func (p *Packager) Package(ctx context.Context, artifact models.BuildArtifact, m models.PackageManifest) (Archive, error) {
	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return Archive{}, models.NewStageError(models.ErrPackaging, err)
	}

	var errs []error
	for _, s := range p.Strategies {
		if !s.Available() {
			slog.Info("packaging strategy unavailable, trying next", "strategy", s.Name())
			continue
		}

		slog.Info("packaging artifact", "strategy", s.Name(), "package", m.RootDirName())
		archivePath, err := s.Package(ctx, artifact, m)
		if err != nil {
			slog.Warn("packaging strategy failed", "strategy", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}

		checksumPath, err := WriteChecksum(archivePath)
		if err != nil {
			return Archive{}, models.NewStageError(models.ErrPackaging, err)
		}

		if err := p.selfTest(ctx, archivePath, m); err != nil {
			return Archive{}, models.NewStageError(models.ErrPackaging,
				fmt.Errorf("archive self-test: %w", err))
		}

		slog.Info("package ready", "archive", archivePath, "checksum", checksumPath, "strategy", s.Name())
		return Archive{Path: archivePath, ChecksumPath: checksumPath, Strategy: s.Name()}, nil
	}

	return Archive{}, models.Stagef(models.ErrPackaging, "all packaging strategies exhausted: %v", errs)
}

// selfTest extracts the fresh archive into a scratch dir and runs the same
// smoke verification against the extracted compiler. The scratch dir is
// removed on success and failure alike.
func (p *Packager) selfTest(ctx context.Context, archivePath string, m models.PackageManifest) error {
	if p.Verifier == nil {
		return nil
	}

	scratch, err := os.MkdirTemp("", "clangforge-selftest-*")
	if err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	slog.Info("self-testing archive", "archive", archivePath)
	if err := ExtractArchive(archivePath, scratch); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}

	binDir := filepath.Join(scratch, m.RootDirName(), "bin")
	return p.Verifier.VerifyBinDir(ctx, binDir)
}
