package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spachava753/clangforge/internal/models"
)

// BuildInfoName is the human-readable build-information file embedded in
// every package.
const BuildInfoName = "build-info.txt"

// EnvHelperName is the generated environment-setup helper embedded in every
// package.
const EnvHelperName = "env.sh"

// writeBuildInfo renders the package manifest as a readable key/value file
// in the install tree.
func writeBuildInfo(artifact models.BuildArtifact, m models.PackageManifest) error {
	var b strings.Builder
	fmt.Fprintf(&b, "package: %s\n", m.PackageName)
	fmt.Fprintf(&b, "build_date: %s\n", m.BuildDate.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "revision: %s\n", m.Revision)
	fmt.Fprintf(&b, "host_commit: %s\n", m.HostCommit)
	fmt.Fprintf(&b, "arch: %s\n", m.Arch)
	if m.Substituted {
		// Keep the substitution hazard visible in the shipped artifact.
		fmt.Fprintf(&b, "substituted: true\n")
	}

	return os.WriteFile(filepath.Join(artifact.InstallDir, BuildInfoName), []byte(b.String()), 0644)
}

// writeEnvHelper generates a sourceable script that puts the packaged
// toolchain on PATH wherever the archive gets extracted.
func writeEnvHelper(artifact models.BuildArtifact, m models.PackageManifest) error {
	script := fmt.Sprintf(`#!/bin/sh
# Source this file to use the packaged toolchain:
#   . ./env.sh
TOOLCHAIN_ROOT="$(cd "$(dirname "$0")" && pwd)"
export PATH="$TOOLCHAIN_ROOT/bin:$PATH"
export LD_LIBRARY_PATH="$TOOLCHAIN_ROOT/lib:$TOOLCHAIN_ROOT/lib/%s-unknown-linux-gnu:$LD_LIBRARY_PATH"
export CC="$TOOLCHAIN_ROOT/bin/clang"
export CXX="$TOOLCHAIN_ROOT/bin/clang++"
`, m.Arch)
	return os.WriteFile(filepath.Join(artifact.InstallDir, EnvHelperName), []byte(script), 0755)
}
