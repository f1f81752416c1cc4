// Package executor coordinates the end-to-end toolchain pipeline: manifest
// read, revision resolution, patching, build, verification and packaging.
// Stages run sequentially; the first fatal stage error aborts the run, and
// the result (success or failure) is always persisted as result.json in the
// work directory.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spachava753/clangforge/internal/builddriver"
	"github.com/spachava753/clangforge/internal/buildlog"
	"github.com/spachava753/clangforge/internal/config"
	"github.com/spachava753/clangforge/internal/manifest"
	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/packager"
	"github.com/spachava753/clangforge/internal/patch"
	"github.com/spachava753/clangforge/internal/revision"
	"github.com/spachava753/clangforge/internal/runner"
	"github.com/spachava753/clangforge/internal/verify"
)

// Pipeline holds the wired stage components for one run.
type Pipeline struct {
	cfg      config.PipelineConfig
	run      runner.Runner
	reader   *manifest.Reader
	resolver *revision.Resolver
	applier  *patch.Applier
	adapter  *builddriver.Adapter
	verifier *verify.Verifier
	packer   *packager.Packager
	logs     *buildlog.Sink
}

// NewPipeline wires a pipeline from configuration. The build-option overrides
// file is read here so a malformed file fails fast, before any fetch.
func NewPipeline(cfg config.PipelineConfig, run runner.Runner) (*Pipeline, error) {
	cfg.ApplyDefaults()

	buildCfg := config.DefaultBuildConfig()
	if cfg.BuildOptionsPath != "" {
		var err error
		buildCfg, err = config.LoadBuildConfig(os.DirFS(filepath.Dir(cfg.BuildOptionsPath)), filepath.Base(cfg.BuildOptionsPath))
		if err != nil {
			return nil, fmt.Errorf("loading build options: %w", err)
		}
	}
	if cfg.CCache {
		buildCfg.CCacheLauncher = "ccache"
	}
	buildCfg.InstallPrefix = cfg.InstallDir

	logs, err := buildlog.NewSink(filepath.Join(cfg.WorkDir, "logs"))
	if err != nil {
		return nil, fmt.Errorf("creating log sink: %w", err)
	}

	verifier := &verify.Verifier{
		Runner:  run,
		Timeout: secs(cfg.VerifyTimeoutSec),
	}

	return &Pipeline{
		cfg: cfg,
		run: run,
		reader: manifest.NewReader(
			&manifest.HelperStrategy{Runner: run},
			&manifest.ScanStrategy{},
		),
		resolver: &revision.Resolver{
			Runner:           run,
			RemoteURL:        cfg.RemoteURL,
			Dir:              cfg.SourceDir,
			DefaultBranch:    cfg.DefaultBranch,
			AllowTipFallback: cfg.AllowTipFallback,
			FetchTimeout:     secs(cfg.FetchTimeoutSec),
		},
		applier: &patch.Applier{
			Runner:  run,
			Timeout: secs(cfg.FetchTimeoutSec),
		},
		adapter: &builddriver.Adapter{
			Runner:       run,
			Config:       buildCfg,
			BuildDir:     cfg.BuildDir,
			InstallDir:   cfg.InstallDir,
			DriverScript: cfg.DriverScript,
			CCacheDir:    cfg.CCacheDir,
			Timeout:      secs(cfg.BuildTimeoutSec),
		},
		verifier: verifier,
		packer: &packager.Packager{
			Strategies: []packager.Strategy{
				&packager.SpecializedStrategy{
					Runner:    run,
					Script:    cfg.PackageScript,
					BuildDir:  cfg.BuildDir,
					OutputDir: cfg.OutputDir,
					Timeout:   secs(cfg.PackageTimeoutSec),
				},
				&packager.GenericStrategy{
					Runner:    run,
					OutputDir: cfg.OutputDir,
					Timeout:   secs(cfg.PackageTimeoutSec),
				},
			},
			Verifier:  verifier,
			OutputDir: cfg.OutputDir,
		},
		logs: logs,
	}, nil
}

// Run executes all stages in order and persists result.json in the work
// directory regardless of outcome.
func (p *Pipeline) Run(ctx context.Context) (*models.PipelineResult, error) {
	result := &models.PipelineResult{StartedAt: time.Now()}

	err := p.runStages(ctx, result)
	if err != nil {
		var stageErr *models.StageError
		if !errors.As(err, &stageErr) {
			stageErr = models.NewStageError(models.ErrInternalError, err)
		}
		result.Error = &models.StageRecord{
			Type:    stageErr.Type,
			Message: stageErr.Err.Error(),
		}
	}

	result.EndedAt = time.Now()
	result.TotalDurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()

	if saveErr := p.saveResult(result); saveErr != nil {
		slog.Warn("persisting result failed", "error", saveErr)
	}

	return result, err
}

func (p *Pipeline) runStages(ctx context.Context, result *models.PipelineResult) error {
	spec, err := p.readManifest(ctx, result)
	if err != nil {
		return err
	}

	tree, err := p.resolve(ctx, result, spec)
	if err != nil {
		return err
	}

	if err := p.applyPatches(ctx, result, tree); err != nil {
		return err
	}

	artifact, err := p.build(ctx, result, tree)
	if err != nil {
		return err
	}

	if err := p.verify(ctx, result, artifact); err != nil {
		return err
	}

	return p.pack(ctx, result, artifact, tree)
}

func (p *Pipeline) readManifest(ctx context.Context, result *models.PipelineResult) (models.RevisionSpec, error) {
	defer p.timing(result, "manifest")()

	if p.cfg.Revision != "" {
		spec := models.RevisionSpec(p.cfg.Revision)
		slog.Info("using revision override", "revision", spec, "kind", spec.Kind())
		result.RevisionSpec = spec.String()
		result.ManifestStrategy = "override"
		return spec, nil
	}

	slog.Info("reading pinned revision", "manifest", p.cfg.ManifestPath)
	spec, strategy, err := p.reader.Read(ctx, p.cfg.ManifestPath)
	if err != nil {
		return "", err
	}

	slog.Info("pinned revision extracted", "revision", spec, "kind", spec.Kind(), "strategy", strategy)
	result.RevisionSpec = spec.String()
	result.ManifestStrategy = strategy
	return spec, nil
}

func (p *Pipeline) resolve(ctx context.Context, result *models.PipelineResult, spec models.RevisionSpec) (models.SourceTree, error) {
	defer p.timing(result, "resolve")()

	slog.Info("resolving revision", "spec", spec, "remote", p.cfg.RemoteURL)
	tree, err := p.resolver.Resolve(ctx, spec)
	if err != nil {
		return models.SourceTree{}, err
	}

	result.Revision = tree.Commit
	result.Substituted = tree.Substituted
	slog.Info("revision resolved", "commit", tree.Commit, "substituted", tree.Substituted)
	return tree, nil
}

func (p *Pipeline) applyPatches(ctx context.Context, result *models.PipelineResult, tree models.SourceTree) error {
	defer p.timing(result, "patch")()

	summary, err := p.applier.Apply(ctx, tree, p.cfg.PatchesDir)
	if err != nil {
		return models.NewStageError(models.ErrPatchFailure, err)
	}
	result.Patches = summary

	_, _, failed := summary.Counts()
	if failed > 0 && p.cfg.FailOnPatchErrors {
		var names []string
		for _, r := range summary.Results {
			if r.Status == models.PatchFailed {
				names = append(names, r.Name)
			}
		}
		return models.Stagef(models.ErrPatchFailure, "%d patch(es) failed: %s", failed, strings.Join(names, ", "))
	}
	return nil
}

func (p *Pipeline) build(ctx context.Context, result *models.PipelineResult, tree models.SourceTree) (models.BuildArtifact, error) {
	defer p.timing(result, "build")()

	log, err := p.logs.StageWriter("build")
	if err != nil {
		slog.Warn("build log capture disabled", "error", err)
		log = nopWriteCloser{io.Discard}
	}
	defer log.Close()

	p.adapter.Output = log
	result.BuildStrategy = string(p.adapter.Strategy())

	artifact, err := p.adapter.Build(ctx, tree)
	if err != nil {
		return models.BuildArtifact{}, err
	}
	return artifact, nil
}

func (p *Pipeline) verify(ctx context.Context, result *models.PipelineResult, artifact models.BuildArtifact) error {
	defer p.timing(result, "verify")()

	slog.Info("verifying toolchain", "bin", artifact.BinDir())
	return p.verifier.Verify(ctx, artifact)
}

func (p *Pipeline) pack(ctx context.Context, result *models.PipelineResult, artifact models.BuildArtifact, tree models.SourceTree) error {
	defer p.timing(result, "package")()

	m := models.PackageManifest{
		BuildDate:   time.Now().UTC(),
		Revision:    tree.Commit,
		HostCommit:  p.hostCommit(ctx),
		Arch:        p.cfg.Arch,
		PackageName: p.cfg.PackagePrefix,
		Substituted: tree.Substituted,
	}

	archive, err := p.packer.Package(ctx, artifact, m)
	if err != nil {
		return err
	}

	result.PackageStrategy = archive.Strategy
	result.ArchivePath = archive.Path
	result.ChecksumPath = archive.ChecksumPath
	return nil
}

// hostCommit records the embedding repository's commit for provenance. The
// host dir may not be a git checkout at all, so failure is informational.
func (p *Pipeline) hostCommit(ctx context.Context) string {
	if p.cfg.HostDir == "" {
		return ""
	}
	res, err := p.run.Run(ctx, "git", []string{"-C", p.cfg.HostDir, "rev-parse", "HEAD"}, runner.Options{})
	if err != nil || res.ExitCode != 0 {
		slog.Debug("host commit unavailable", "dir", p.cfg.HostDir)
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// timing returns a func that records the stage duration when invoked;
// intended for use with defer at the top of each stage.
func (p *Pipeline) timing(result *models.PipelineResult, name string) func() {
	start := time.Now()
	return func() {
		end := time.Now()
		result.Stages = append(result.Stages, models.StageTiming{
			Name:        name,
			StartedAt:   start,
			EndedAt:     end,
			DurationSec: end.Sub(start).Seconds(),
		})
	}
}

func (p *Pipeline) saveResult(result *models.PipelineResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.cfg.WorkDir, "result.json"), data, 0644)
}

// RunFromConfig loads a pipeline config file and executes the pipeline.
func RunFromConfig(ctx context.Context, configPath string) (*models.PipelineResult, error) {
	cfg, err := config.LoadPipelineConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading pipeline config: %w", err)
	}

	pipeline, err := NewPipeline(cfg, &runner.ExecRunner{})
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return pipeline.Run(ctx)
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
