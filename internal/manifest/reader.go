// Package manifest extracts the pinned toolchain revision from a Chromium
// DEPS file. There is no API for this: the primary strategy asks the gclient
// helper, the fallback scans the manifest text for the clang source-archive
// naming convention.
package manifest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spachava753/clangforge/internal/models"
)

// Strategy is one way of extracting a revision token from a manifest file.
// Strategies return a bare token with no decoration.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, path string) (models.RevisionSpec, error)
}

// Reader tries an ordered list of strategies, first success wins.
type Reader struct {
	strategies []Strategy
}

// NewReader creates a Reader with the given strategy chain.
func NewReader(strategies ...Strategy) *Reader {
	return &Reader{strategies: strategies}
}

// Read extracts the pinned revision and reports which strategy produced it.
func (r *Reader) Read(ctx context.Context, path string) (models.RevisionSpec, string, error) {
	var errs []error
	for _, s := range r.strategies {
		slog.Info("extracting pinned revision", "strategy", s.Name(), "manifest", path)
		spec, err := s.Extract(ctx, path)
		if err != nil {
			slog.Debug("manifest strategy failed", "strategy", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		slog.Info("found pinned revision", "strategy", s.Name(), "revision", spec)
		return spec, s.Name(), nil
	}
	return "", "", models.Stagef(models.ErrManifestParse,
		"no strategy extracted a revision from %s: %v", path, errs)
}
