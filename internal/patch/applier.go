// Package patch applies a directory of unified-diff files on top of a
// resolved source tree. Upstream drift makes historical patches go stale, so
// application is best-effort: failures are recorded and surfaced as
// warnings, never as pipeline aborts.
package patch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

// Applier applies patch sets to source trees.
type Applier struct {
	Runner  runner.Runner
	Timeout time.Duration
}

// Apply applies every *.patch file under dir to tree in lexicographic order.
// A missing directory is a valid empty patch set. Patches may depend on each
// other, so order is preserved; a failed patch is recorded and the rest
// still run.
func (a *Applier) Apply(ctx context.Context, tree models.SourceTree, dir string) (models.PatchSummary, error) {
	var summary models.PatchSummary

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("no patch directory, skipping", "dir", dir)
			return summary, nil
		}
		return summary, fmt.Errorf("reading patch directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".patch") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	slog.Info("applying patches", "dir", dir, "count", len(names))
	for _, name := range names {
		summary.Results = append(summary.Results, a.applyOne(ctx, tree, filepath.Join(dir, name)))
	}

	applied, skipped, failed := summary.Counts()
	slog.Info("patch application finished", "applied", applied, "skipped", skipped, "failed", failed)
	return summary, nil
}

func (a *Applier) applyOne(ctx context.Context, tree models.SourceTree, path string) models.PatchResult {
	name := filepath.Base(path)

	// The file can disappear between listing and application; that is not an
	// error, just a skip.
	if _, err := os.Stat(path); err != nil {
		slog.Debug("patch vanished before application, skipping", "patch", name)
		return models.PatchResult{Name: name, Status: models.PatchSkipped}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	res, err := a.Runner.Run(ctx, "git", []string{"apply", abs}, runner.Options{
		Dir:     tree.Dir,
		Timeout: a.Timeout,
	})
	if err != nil {
		slog.Warn("patch failed to apply", "patch", name, "error", err)
		return models.PatchResult{Name: name, Status: models.PatchFailed, Message: err.Error()}
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		slog.Warn("patch failed to apply", "patch", name, "exit_code", res.ExitCode, "stderr", msg)
		return models.PatchResult{Name: name, Status: models.PatchFailed,
			Message: fmt.Sprintf("git apply exited %d: %s", res.ExitCode, msg)}
	}

	slog.Info("patch applied", "patch", name)
	return models.PatchResult{Name: name, Status: models.PatchApplied}
}
