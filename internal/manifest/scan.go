package manifest

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/spachava753/clangforge/internal/models"
)

// The clang package archives referenced by DEPS are named
// clang-llvmorg-<major>-init-<count>-<hash>-<pkg>.tar.xz; the embedded hash
// is the pinned upstream revision.
var (
	archivePattern = regexp.MustCompile(`clang-llvmorg-(\d+)-init-(\d+)-([0-9a-fA-F]{8,})-\d+`)

	// Looser form for manifests that drop the init counter.
	archivePatternLoose = regexp.MustCompile(`clang-llvmorg-[\w.]+-([0-9a-fA-F]{8,})-\d+`)
)

// ScanStrategy extracts the revision token by scanning the manifest text for
// the toolchain source-archive naming convention.
type ScanStrategy struct{}

// Name identifies the strategy in logs and results.
func (s *ScanStrategy) Name() string { return "scan" }

// Extract reads the manifest and returns the embedded revision token.
func (s *ScanStrategy) Extract(ctx context.Context, path string) (models.RevisionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}

	if m := archivePattern.FindSubmatch(data); m != nil {
		return models.RevisionSpec(m[3]), nil
	}
	if m := archivePatternLoose.FindSubmatch(data); m != nil {
		return models.RevisionSpec(m[1]), nil
	}
	return "", fmt.Errorf("no clang archive token in manifest")
}
