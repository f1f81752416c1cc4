package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultRemoteURL is the canonical upstream repository.
const DefaultRemoteURL = "https://github.com/llvm/llvm-project.git"

// PipelineConfig represents the parsed pipeline.yaml configuration.
type PipelineConfig struct {
	WorkDir      string `yaml:"work_dir" json:"work_dir"`
	ManifestPath string `yaml:"manifest_path" json:"manifest_path"`
	HostDir      string `yaml:"host_dir,omitempty" json:"host_dir,omitempty"`
	PatchesDir   string `yaml:"patches_dir,omitempty" json:"patches_dir,omitempty"`

	RemoteURL     string `yaml:"remote_url" json:"remote_url"`
	DefaultBranch string `yaml:"default_branch" json:"default_branch"`
	SourceDir     string `yaml:"source_dir,omitempty" json:"source_dir,omitempty"`
	BuildDir      string `yaml:"build_dir,omitempty" json:"build_dir,omitempty"`
	InstallDir    string `yaml:"install_dir,omitempty" json:"install_dir,omitempty"`
	OutputDir     string `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`

	// Revision overrides the manifest-extracted revision spec when set.
	Revision string `yaml:"revision,omitempty" json:"revision,omitempty"`

	PackagePrefix string `yaml:"package_prefix" json:"package_prefix"`
	Arch          string `yaml:"arch,omitempty" json:"arch,omitempty"`

	// DriverScript selects the delegated build strategy when it exists.
	DriverScript string `yaml:"driver_script,omitempty" json:"driver_script,omitempty"`
	// PackageScript selects the specialized packaging strategy when it exists.
	PackageScript string `yaml:"package_script,omitempty" json:"package_script,omitempty"`

	// BuildOptionsPath points at an optional TOML file overriding the static
	// build-option defaults.
	BuildOptionsPath string `yaml:"build_options_path,omitempty" json:"build_options_path,omitempty"`

	CCache    bool   `yaml:"ccache" json:"ccache"`
	CCacheDir string `yaml:"ccache_dir,omitempty" json:"ccache_dir,omitempty"`

	// AllowTipFallback opts into substituting the default branch tip when a
	// short hash cannot be resolved. Off by default: silent substitution can
	// pin a build to an unrelated commit.
	AllowTipFallback bool `yaml:"allow_tip_fallback" json:"allow_tip_fallback"`

	// FailOnPatchErrors promotes the aggregate patch summary to a fatal
	// pipeline error for callers that require strict patching.
	FailOnPatchErrors bool `yaml:"fail_on_patch_errors" json:"fail_on_patch_errors"`

	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	FetchTimeoutSec   float64 `yaml:"fetch_timeout_sec" json:"fetch_timeout_sec"`
	BuildTimeoutSec   float64 `yaml:"build_timeout_sec" json:"build_timeout_sec"`
	VerifyTimeoutSec  float64 `yaml:"verify_timeout_sec" json:"verify_timeout_sec"`
	PackageTimeoutSec float64 `yaml:"package_timeout_sec" json:"package_timeout_sec"`
}

// DefaultPipelineConfig returns a PipelineConfig with default values.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		WorkDir:           "work",
		ManifestPath:      filepath.Join("chromium", "DEPS"),
		PatchesDir:        "patches",
		RemoteURL:         DefaultRemoteURL,
		DefaultBranch:     "main",
		PackagePrefix:     "clang",
		Arch:              hostArch(),
		FetchTimeoutSec:   1800,
		BuildTimeoutSec:   14400,
		VerifyTimeoutSec:  300,
		PackageTimeoutSec: 1800,
	}
}

// LoadPipelineConfig loads and parses a pipeline.yaml file.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading pipeline config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing pipeline config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills derived and zero-valued fields.
func (c *PipelineConfig) ApplyDefaults() {
	if c.WorkDir == "" {
		c.WorkDir = "work"
	}
	if c.RemoteURL == "" {
		c.RemoteURL = DefaultRemoteURL
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = "main"
	}
	if c.PackagePrefix == "" {
		c.PackagePrefix = "clang"
	}
	if c.Arch == "" {
		c.Arch = hostArch()
	}
	if c.HostDir == "" && c.ManifestPath != "" {
		c.HostDir = filepath.Dir(c.ManifestPath)
	}
	if c.SourceDir == "" {
		c.SourceDir = filepath.Join(c.WorkDir, "llvm-project")
	}
	if c.BuildDir == "" {
		c.BuildDir = filepath.Join(c.WorkDir, "build")
	}
	if c.InstallDir == "" {
		c.InstallDir = filepath.Join(c.WorkDir, "install")
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.WorkDir, "out")
	}
	if c.FetchTimeoutSec == 0 {
		c.FetchTimeoutSec = 1800
	}
	if c.BuildTimeoutSec == 0 {
		c.BuildTimeoutSec = 14400
	}
	if c.VerifyTimeoutSec == 0 {
		c.VerifyTimeoutSec = 300
	}
	if c.PackageTimeoutSec == 0 {
		c.PackageTimeoutSec = 1800
	}
}

// hostArch maps the Go architecture name to the toolchain convention.
func hostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return runtime.GOARCH
	}
}
