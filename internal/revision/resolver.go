// Package revision turns a pinned revision spec into a checked-out source
// tree identified by a full commit hash. Remotes reachable here reject most
// deep history requests, so resolution works against a shallow clone and
// escalates fetch depth only as far as each spec form requires.
package revision

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

// deepFetchDepth is the bounded depth requested when a full unshallow is
// rejected or fails while resolving a short hash.
const deepFetchDepth = 10000

// Resolver resolves revision specs against a local clone of the upstream
// repository, creating the clone on first use.
type Resolver struct {
	Runner           runner.Runner
	RemoteURL        string
	Dir              string
	DefaultBranch    string
	AllowTipFallback bool
	FetchTimeout     time.Duration
}

// Resolve checks out the revision identified by spec and returns the source
// tree pinned to the full commit hash that was actually checked out.
func (r *Resolver) Resolve(ctx context.Context, spec models.RevisionSpec) (models.SourceTree, error) {
	if err := r.ensureClone(ctx); err != nil {
		return models.SourceTree{}, models.NewStageError(models.ErrRevisionResolution, err)
	}

	kind := spec.Kind()
	slog.Info("resolving revision", "spec", spec, "kind", kind)

	var substituted bool
	var err error
	switch kind {
	case models.RevisionTag:
		err = r.resolveTag(ctx, spec)
	case models.RevisionFullHash:
		err = r.resolveFullHash(ctx, spec)
	case models.RevisionShortHash:
		substituted, err = r.resolveShortHash(ctx, spec)
	case models.RevisionBranch:
		err = r.resolveBranch(ctx, spec)
	}
	if err != nil {
		return models.SourceTree{}, models.NewStageError(models.ErrRevisionResolution,
			fmt.Errorf("resolving %s %q: %w", kind, spec, err))
	}

	head, err := r.revParse(ctx, "HEAD")
	if err != nil {
		return models.SourceTree{}, models.NewStageError(models.ErrRevisionResolution,
			fmt.Errorf("reading checked-out commit: %w", err))
	}
	if len(head) != models.FullHashLen {
		return models.SourceTree{}, models.Stagef(models.ErrRevisionResolution,
			"rev-parse produced a non-full hash %q", head)
	}

	slog.Info("revision resolved", "spec", spec, "commit", head, "substituted", substituted)
	return models.SourceTree{Dir: r.Dir, Commit: head, Substituted: substituted}, nil
}

// ensureClone creates a shallow clone if the source tree is absent. An
// existing clone from a prior run is reused as-is.
func (r *Resolver) ensureClone(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(r.Dir, ".git")); err == nil {
		slog.Debug("reusing existing clone", "dir", r.Dir)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(r.Dir), 0755); err != nil {
		return fmt.Errorf("creating clone parent: %w", err)
	}

	slog.Info("cloning repository (shallow)", "url", r.RemoteURL, "dest", r.Dir)
	res, err := r.Runner.Run(ctx, "git",
		[]string{"clone", "--depth", "1", r.RemoteURL, r.Dir},
		runner.Options{Timeout: r.FetchTimeout})
	if err != nil {
		return fmt.Errorf("git clone: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("git clone exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

func (r *Resolver) resolveTag(ctx context.Context, spec models.RevisionSpec) error {
	if err := r.git(ctx, "fetch", "--tags", "origin"); err != nil {
		return err
	}
	return r.git(ctx, "checkout", spec.String())
}

// resolveFullHash fetches the specific commit at depth 1; remotes that
// reject direct commit fetches trigger an unshallow of the default branch.
func (r *Resolver) resolveFullHash(ctx context.Context, spec models.RevisionSpec) error {
	if err := r.git(ctx, "fetch", "--depth", "1", "origin", spec.String()); err != nil {
		slog.Warn("direct commit fetch rejected, unshallowing default branch", "error", err)
		if err := r.git(ctx, "fetch", "--unshallow", "origin", r.DefaultBranch); err != nil {
			return err
		}
	}
	return r.git(ctx, "checkout", spec.String())
}

// resolveShortHash escalates fetch depth until the short form resolves to a
// local commit object. When every attempt fails, substituting the default
// branch tip is a hard error unless explicitly opted into.
func (r *Resolver) resolveShortHash(ctx context.Context, spec models.RevisionSpec) (bool, error) {
	full, err := r.revParse(ctx, spec.String()+"^{commit}")
	if err != nil {
		slog.Info("short hash not in shallow history, unshallowing", "spec", spec)
		if uerr := r.git(ctx, "fetch", "--unshallow"); uerr != nil {
			slog.Warn("unshallow failed, trying bounded deep fetch",
				"depth", deepFetchDepth, "error", uerr)
			if derr := r.git(ctx, "fetch", "--depth", fmt.Sprint(deepFetchDepth), "origin", r.DefaultBranch); derr != nil {
				slog.Warn("bounded deep fetch failed", "error", derr)
			}
		}
		full, err = r.revParse(ctx, spec.String()+"^{commit}")
	}

	if err != nil {
		if !r.AllowTipFallback {
			return false, fmt.Errorf("short hash %q not found after depth escalation "+
				"(enable allow_tip_fallback to substitute the %s tip): %w", spec, r.DefaultBranch, err)
		}
		slog.Warn("substituting default branch tip for unresolved short hash",
			"spec", spec, "branch", r.DefaultBranch)
		if err := r.git(ctx, "fetch", "origin", r.DefaultBranch); err != nil {
			return false, err
		}
		if err := r.git(ctx, "checkout", "FETCH_HEAD"); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, r.git(ctx, "checkout", full)
}

func (r *Resolver) resolveBranch(ctx context.Context, spec models.RevisionSpec) error {
	if err := r.git(ctx, "fetch", "origin", spec.String()); err != nil {
		return err
	}
	return r.git(ctx, "checkout", "FETCH_HEAD")
}

// git runs a git subcommand in the clone and fails on non-zero exit.
func (r *Resolver) git(ctx context.Context, args ...string) error {
	res, err := r.Runner.Run(ctx, "git", args, runner.Options{
		Dir:     r.Dir,
		Timeout: r.FetchTimeout,
	})
	if err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("git %s exited %d: %s", args[0], res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// revParse resolves ref to a full commit hash in the local clone.
func (r *Resolver) revParse(ctx context.Context, ref string) (string, error) {
	res, err := r.Runner.Run(ctx, "git", []string{"rev-parse", "--verify", ref}, runner.Options{
		Dir:     r.Dir,
		Timeout: r.FetchTimeout,
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("rev-parse %s exited %d: %s", ref, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}
