package packager_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/packager"
	"github.com/spachava753/clangforge/internal/runner"
	"github.com/spachava753/clangforge/internal/verify"
)

func testManifest() models.PackageManifest {
	return models.PackageManifest{
		BuildDate:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Revision:    "abcdef0123456789abcdef0123456789abcdef01",
		HostCommit:  "1111111111111111111111111111111111111111",
		Arch:        "aarch64",
		PackageName: "clang",
	}
}

// fakeInstallTree lays out a minimal install dir with executable stubs and
// cmake metadata.
func fakeInstallTree(t *testing.T) models.BuildArtifact {
	t.Helper()
	install := filepath.Join(t.TempDir(), "install")
	for _, dir := range []string{"bin", "lib", filepath.Join("lib", "cmake", "llvm")} {
		if err := os.MkdirAll(filepath.Join(install, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"clang", "clang++", "ld.lld"} {
		if err := os.WriteFile(filepath.Join(install, "bin", name), []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(install, "lib", "libclang.so"), []byte("elf"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(install, "lib", "cmake", "llvm", "LLVMConfig.cmake"), []byte("# cmake"), 0644); err != nil {
		t.Fatal(err)
	}
	return models.BuildArtifact{InstallDir: install}
}

func newGeneric(t *testing.T, r runner.Runner) (*packager.GenericStrategy, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	return &packager.GenericStrategy{Runner: r, OutputDir: out}, out
}

func TestGenericStrategyProducesArchive(t *testing.T) {
	artifact := fakeInstallTree(t)
	m := testManifest()

	r := runner.NewScriptedRunner()
	r.Stub("file", "", runner.Result{Stdout: "ELF 64-bit LSB executable, not stripped\n"}, nil)

	g, _ := newGeneric(t, r)
	archive, err := g.Package(context.Background(), artifact, m)
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	if filepath.Base(archive) != "clang-aarch64-2024-06-01-abcdef012345.tar.xz" {
		t.Errorf("archive name = %s", filepath.Base(archive))
	}

	// Metadata is gone, manifest and helper are in the tree.
	if _, err := os.Stat(filepath.Join(artifact.InstallDir, "lib", "cmake")); !os.IsNotExist(err) {
		t.Error("cmake metadata survived packaging")
	}
	if _, err := os.Stat(filepath.Join(artifact.InstallDir, packager.BuildInfoName)); err != nil {
		t.Errorf("build info missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(artifact.InstallDir, packager.EnvHelperName)); err != nil {
		t.Errorf("env helper missing: %v", err)
	}

	// Binaries were stripped.
	lines := strings.Join(r.CallLines(), "\n")
	if !strings.Contains(lines, "strip "+filepath.Join(artifact.InstallDir, "bin", "clang")) {
		t.Errorf("expected strip of clang, got:\n%s", lines)
	}
}

func TestGenericStrategySkipsStrippedFiles(t *testing.T) {
	artifact := fakeInstallTree(t)

	r := runner.NewScriptedRunner()
	r.Stub("file", "", runner.Result{Stdout: "ELF 64-bit LSB executable, stripped\n"}, nil)

	g, _ := newGeneric(t, r)
	if _, err := g.Package(context.Background(), artifact, testManifest()); err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	for _, line := range r.CallLines() {
		if strings.HasPrefix(line, "strip ") {
			t.Errorf("stripped file was re-stripped: %s", line)
		}
	}
}

func TestGenericStrategyStripFailureIsNonFatal(t *testing.T) {
	artifact := fakeInstallTree(t)

	r := runner.NewScriptedRunner()
	r.Stub("file", "", runner.Result{Stdout: "ELF 64-bit LSB executable, not stripped\n"}, nil)
	r.Stub("strip", "", runner.Result{ExitCode: 1, Stderr: "strip: bad format"}, nil)

	g, _ := newGeneric(t, r)
	if _, err := g.Package(context.Background(), artifact, testManifest()); err != nil {
		t.Fatalf("strip failure must not fail packaging: %v", err)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	artifact := fakeInstallTree(t)
	m := testManifest()

	g, _ := newGeneric(t, runner.NewScriptedRunner())
	archive, err := g.Package(context.Background(), artifact, m)
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	dest := t.TempDir()
	if err := packager.ExtractArchive(archive, dest); err != nil {
		t.Fatalf("ExtractArchive failed: %v", err)
	}

	// Root is renamed to the generated package name.
	root := filepath.Join(dest, m.RootDirName())
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("renamed root missing: %v", err)
	}

	// Executables keep their mode, the manifest travels with the package.
	info, err := os.Stat(filepath.Join(root, "bin", "clang"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0111 == 0 {
		t.Error("extracted clang lost its executable bit")
	}

	data, err := os.ReadFile(filepath.Join(root, packager.BuildInfoName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "revision: "+m.Revision) {
		t.Errorf("build info content:\n%s", data)
	}
}

func TestChecksumValidatesArchiveBytes(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "pkg.tar.xz")
	if err := os.WriteFile(archive, []byte("archive bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := packager.WriteChecksum(archive)
	if err != nil {
		t.Fatalf("WriteChecksum failed: %v", err)
	}
	if path != archive+".sha256" {
		t.Errorf("checksum path = %s", path)
	}
	if err := packager.ValidateChecksum(archive); err != nil {
		t.Errorf("ValidateChecksum failed: %v", err)
	}

	// Corrupt the archive; validation must now fail.
	if err := os.WriteFile(archive, []byte("tampered bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := packager.ValidateChecksum(archive); err == nil {
		t.Error("expected checksum mismatch after tampering")
	}
}

func TestPackagerFallsBackWhenSpecializedAbsent(t *testing.T) {
	artifact := fakeInstallTree(t)
	m := testManifest()
	r := runner.NewScriptedRunner()

	g, out := newGeneric(t, r)
	p := &packager.Packager{
		Strategies: []packager.Strategy{
			&packager.SpecializedStrategy{
				Runner:    r,
				Script:    filepath.Join(t.TempDir(), "missing", "package.py"),
				OutputDir: out,
			},
			g,
		},
		Verifier:  &verify.Verifier{Runner: r},
		OutputDir: out,
	}

	archive, err := p.Package(context.Background(), artifact, m)
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}

	if archive.Strategy != "generic" {
		t.Errorf("strategy = %s, want generic", archive.Strategy)
	}
	if err := packager.ValidateChecksum(archive.Path); err != nil {
		t.Errorf("checksum invalid: %v", err)
	}
}

func TestPackagerUsesSpecializedWhenPresent(t *testing.T) {
	artifact := fakeInstallTree(t)
	m := testManifest()

	out := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(t.TempDir(), "package.py")
	if err := os.WriteFile(script, []byte(""), 0755); err != nil {
		t.Fatal(err)
	}

	r := runner.NewScriptedRunner()
	// The script produces a real archive so checksum and self-test can run.
	r.StubFunc("python3", "package.py", func([]string, runner.Options) (runner.Result, error) {
		err := packager.CreateArchive(artifact.InstallDir, m.RootDirName(), filepath.Join(out, m.ArchiveName()))
		return runner.Result{}, err
	})

	p := &packager.Packager{
		Strategies: []packager.Strategy{
			&packager.SpecializedStrategy{Runner: r, Script: script, OutputDir: out},
		},
		Verifier:  &verify.Verifier{Runner: r},
		OutputDir: out,
	}

	archive, err := p.Package(context.Background(), artifact, m)
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}
	if archive.Strategy != "specialized" {
		t.Errorf("strategy = %s, want specialized", archive.Strategy)
	}
}

func TestPackagerSelfTestFailureIsFatal(t *testing.T) {
	artifact := fakeInstallTree(t)
	// Break the artifact so the extracted copy misses a mandatory binary.
	if err := os.Remove(filepath.Join(artifact.InstallDir, "bin", "ld.lld")); err != nil {
		t.Fatal(err)
	}

	r := runner.NewScriptedRunner()
	g, out := newGeneric(t, r)
	p := &packager.Packager{
		Strategies: []packager.Strategy{g},
		Verifier:   &verify.Verifier{Runner: r},
		OutputDir:  out,
	}

	_, err := p.Package(context.Background(), artifact, testManifest())
	if err == nil {
		t.Fatal("expected self-test failure")
	}

	var stageErr *models.StageError
	if !errors.As(err, &stageErr) || stageErr.Type != models.ErrPackaging {
		t.Errorf("expected packaging error, got %v", err)
	}
}

func TestPackagerAllStrategiesExhausted(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	p := &packager.Packager{
		Strategies: []packager.Strategy{
			&packager.SpecializedStrategy{
				Runner:    runner.NewScriptedRunner(),
				Script:    filepath.Join(t.TempDir(), "missing.py"),
				OutputDir: out,
			},
		},
		OutputDir: out,
	}

	_, err := p.Package(context.Background(), fakeInstallTree(t), testManifest())
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	var stageErr *models.StageError
	if !errors.As(err, &stageErr) || stageErr.Type != models.ErrPackaging {
		t.Errorf("expected packaging error, got %v", err)
	}
}
