package config

import (
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/clangforge/internal/models"
)

// buildOptions is the TOML shape of the optional build-options file.
type buildOptions struct {
	Targets           []string `toml:"targets"`
	Projects          []string `toml:"projects"`
	Runtimes          []string `toml:"runtimes"`
	BuildType         string   `toml:"build_type"`
	Assertions        bool     `toml:"assertions"`
	OptimizedTablegen bool     `toml:"optimized_tablegen"`
	UseLLD            bool     `toml:"use_lld"`
}

// DefaultBuildConfig returns the static build-option defaults.
func DefaultBuildConfig() models.BuildConfig {
	return models.BuildConfig{
		Targets:           []string{"AArch64", "ARM", "X86"},
		Projects:          []string{"clang", "clang-tools-extra", "lld", "compiler-rt"},
		Runtimes:          []string{"libcxx", "libcxxabi", "libunwind"},
		BuildType:         "Release",
		Assertions:        false,
		OptimizedTablegen: true,
		UseLLD:            true,
	}
}

// LoadBuildConfig loads a build-options TOML file from the given filesystem
// and merges it over the static defaults. Booleans only override when the
// key is present in the file.
func LoadBuildConfig(fsys fs.FS, name string) (models.BuildConfig, error) {
	cfg := DefaultBuildConfig()

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return cfg, fmt.Errorf("reading build options: %w", err)
	}

	var opts buildOptions
	md, err := toml.Decode(string(data), &opts)
	if err != nil {
		return cfg, fmt.Errorf("parsing build options: %w", err)
	}

	if len(opts.Targets) > 0 {
		cfg.Targets = opts.Targets
	}
	if len(opts.Projects) > 0 {
		cfg.Projects = opts.Projects
	}
	if len(opts.Runtimes) > 0 {
		cfg.Runtimes = opts.Runtimes
	}
	if opts.BuildType != "" {
		cfg.BuildType = opts.BuildType
	}
	if md.IsDefined("assertions") {
		cfg.Assertions = opts.Assertions
	}
	if md.IsDefined("optimized_tablegen") {
		cfg.OptimizedTablegen = opts.OptimizedTablegen
	}
	if md.IsDefined("use_lld") {
		cfg.UseLLD = opts.UseLLD
	}

	return cfg, nil
}
