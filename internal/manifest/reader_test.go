package manifest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spachava753/clangforge/internal/manifest"
	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DEPS")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const depsSnippet = `
vars = {
  'clang_version': 'llvmorg-19-init',
}
deps = {
  'src/third_party/clang': {
    'packages': [{
      'package': 'chromium/clang-llvmorg-19-init-1234-abcd5678-1.tar.xz',
    }],
  },
}
`

func TestScanStrategyExtractsEmbeddedToken(t *testing.T) {
	path := writeManifest(t, depsSnippet)

	spec, err := (&manifest.ScanStrategy{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if spec != "abcd5678" {
		t.Errorf("spec = %q, want abcd5678", spec)
	}
	if spec.Kind() != models.RevisionShortHash {
		t.Errorf("kind = %s, want short_hash", spec.Kind())
	}
}

func TestScanStrategyLoosePattern(t *testing.T) {
	path := writeManifest(t, "pkg: clang-llvmorg-20.1.0-deadbeef01-2.tar.xz\n")

	spec, err := (&manifest.ScanStrategy{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if spec != "deadbeef01" {
		t.Errorf("spec = %q, want deadbeef01", spec)
	}
}

func TestScanStrategyNoToken(t *testing.T) {
	path := writeManifest(t, "deps = {}\n")

	if _, err := (&manifest.ScanStrategy{}).Extract(context.Background(), path); err == nil {
		t.Error("expected error for manifest without token")
	}
}

func TestHelperStrategyTrimsOutput(t *testing.T) {
	r := runner.NewScriptedRunner()
	r.Stub("gclient", "getdep", runner.Result{Stdout: "abcdef0123456789abcdef0123456789abcdef01\n"}, nil)

	spec, err := (&manifest.HelperStrategy{Runner: r}).Extract(context.Background(), "DEPS")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if spec.Kind() != models.RevisionFullHash {
		t.Errorf("kind = %s, want full_hash", spec.Kind())
	}
}

func TestHelperStrategyMissingTool(t *testing.T) {
	r := runner.NewScriptedRunner()
	r.MarkMissing("gclient")

	if _, err := (&manifest.HelperStrategy{Runner: r}).Extract(context.Background(), "DEPS"); err == nil {
		t.Error("expected error when helper is missing")
	}
}

func TestReaderFallsBackToScan(t *testing.T) {
	path := writeManifest(t, depsSnippet)

	r := runner.NewScriptedRunner()
	r.MarkMissing("gclient")

	reader := manifest.NewReader(&manifest.HelperStrategy{Runner: r}, &manifest.ScanStrategy{})
	spec, strategy, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if spec != "abcd5678" {
		t.Errorf("spec = %q", spec)
	}
	if strategy != "scan" {
		t.Errorf("strategy = %q, want scan", strategy)
	}
}

func TestReaderPrefersHelper(t *testing.T) {
	path := writeManifest(t, depsSnippet)

	r := runner.NewScriptedRunner()
	r.Stub("gclient", "getdep", runner.Result{Stdout: "abcd5678\n"}, nil)

	reader := manifest.NewReader(&manifest.HelperStrategy{Runner: r}, &manifest.ScanStrategy{})
	_, strategy, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if strategy != "gclient" {
		t.Errorf("strategy = %q, want gclient", strategy)
	}
}

func TestReaderAllStrategiesFail(t *testing.T) {
	path := writeManifest(t, "deps = {}\n")

	r := runner.NewScriptedRunner()
	r.MarkMissing("gclient")

	reader := manifest.NewReader(&manifest.HelperStrategy{Runner: r}, &manifest.ScanStrategy{})
	_, _, err := reader.Read(context.Background(), path)
	if err == nil {
		t.Fatal("expected error")
	}

	var stageErr *models.StageError
	if !errors.As(err, &stageErr) || stageErr.Type != models.ErrManifestParse {
		t.Errorf("expected manifest_parse stage error, got %v", err)
	}
}
