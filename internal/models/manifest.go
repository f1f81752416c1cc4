package models

import (
	"fmt"
	"time"
)

// PackageManifest is the derived metadata written into every package. It has
// no lifecycle of its own and is regenerated on each packaging run.
type PackageManifest struct {
	BuildDate   time.Time `json:"build_date"`
	Revision    string    `json:"revision"`
	HostCommit  string    `json:"host_commit"`
	Arch        string    `json:"arch"`
	PackageName string    `json:"package_name"`
	Substituted bool      `json:"substituted,omitempty"`
}

// RevisionPrefix returns the short revision form used in archive names.
func (m PackageManifest) RevisionPrefix() string {
	if len(m.Revision) > ShortHashMax {
		return m.Revision[:ShortHashMax]
	}
	return m.Revision
}

// RootDirName is the generated package name the archive root is renamed to.
func (m PackageManifest) RootDirName() string {
	return fmt.Sprintf("%s-%s-%s-%s",
		m.PackageName, m.Arch, m.BuildDate.Format("2006-01-02"), m.RevisionPrefix())
}

// ArchiveName returns <package>-<arch>-<date>-<revision-prefix>.tar.xz.
func (m PackageManifest) ArchiveName() string {
	return m.RootDirName() + ".tar.xz"
}
