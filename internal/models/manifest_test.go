package models_test

import (
	"testing"
	"time"

	"github.com/spachava753/clangforge/internal/models"
)

func TestPackageManifestNaming(t *testing.T) {
	m := models.PackageManifest{
		BuildDate:   time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC),
		Revision:    "abcdef0123456789abcdef0123456789abcdef01",
		Arch:        "x86_64",
		PackageName: "clang",
	}

	if got := m.RevisionPrefix(); got != "abcdef012345" {
		t.Errorf("RevisionPrefix() = %s", got)
	}
	if got := m.RootDirName(); got != "clang-x86_64-2024-06-01-abcdef012345" {
		t.Errorf("RootDirName() = %s", got)
	}
	if got := m.ArchiveName(); got != "clang-x86_64-2024-06-01-abcdef012345.tar.xz" {
		t.Errorf("ArchiveName() = %s", got)
	}
}

func TestPackageManifestShortRevisionNaming(t *testing.T) {
	m := models.PackageManifest{
		BuildDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Revision:    "abcd5678",
		Arch:        "aarch64",
		PackageName: "clang",
	}
	if got := m.RevisionPrefix(); got != "abcd5678" {
		t.Errorf("RevisionPrefix() = %s", got)
	}
}
