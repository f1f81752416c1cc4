package models

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// BuildConfig is the immutable set of build options for one pipeline run.
// It is constructed once from static defaults (optionally overridden by the
// build-options file) and never mutated afterwards.
type BuildConfig struct {
	Targets           []string
	Projects          []string
	Runtimes          []string
	BuildType         string
	Assertions        bool
	OptimizedTablegen bool
	UseLLD            bool
	CCacheLauncher    string
	InstallPrefix     string
}

// CMakeArgs renders the config as -D cache arguments for a direct
// build-configuration tool invocation.
func (c BuildConfig) CMakeArgs() []string {
	args := []string{
		"-DCMAKE_BUILD_TYPE=" + c.BuildType,
		"-DCMAKE_INSTALL_PREFIX=" + c.InstallPrefix,
		"-DLLVM_TARGETS_TO_BUILD=" + strings.Join(c.Targets, ";"),
		"-DLLVM_ENABLE_PROJECTS=" + strings.Join(c.Projects, ";"),
		"-DLLVM_ENABLE_RUNTIMES=" + strings.Join(c.Runtimes, ";"),
		fmt.Sprintf("-DLLVM_ENABLE_ASSERTIONS=%s", onOff(c.Assertions)),
		fmt.Sprintf("-DLLVM_OPTIMIZED_TABLEGEN=%s", onOff(c.OptimizedTablegen)),
	}
	if c.UseLLD {
		args = append(args, "-DLLVM_ENABLE_LLD=ON")
	}
	if c.CCacheLauncher != "" {
		args = append(args,
			"-DCMAKE_C_COMPILER_LAUNCHER="+c.CCacheLauncher,
			"-DCMAKE_CXX_COMPILER_LAUNCHER="+c.CCacheLauncher,
		)
	}
	return args
}

// Options returns the config as a sorted key/value listing, used for the
// human-readable build-information file.
func (c BuildConfig) Options() []string {
	kv := map[string]string{
		"build_type":         c.BuildType,
		"targets":            strings.Join(c.Targets, ";"),
		"projects":           strings.Join(c.Projects, ";"),
		"runtimes":           strings.Join(c.Runtimes, ";"),
		"assertions":         onOff(c.Assertions),
		"optimized_tablegen": onOff(c.OptimizedTablegen),
		"install_prefix":     c.InstallPrefix,
	}
	if c.UseLLD {
		kv["linker"] = "lld"
	}
	if c.CCacheLauncher != "" {
		kv["compiler_launcher"] = c.CCacheLauncher
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+kv[k])
	}
	return out
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// BuildArtifact is the installed toolchain directory tree produced by
// exactly one BuildConfig + SourceTree pair.
type BuildArtifact struct {
	InstallDir string
}

// BinDir returns the artifact's executable directory.
func (a BuildArtifact) BinDir() string {
	return filepath.Join(a.InstallDir, "bin")
}
