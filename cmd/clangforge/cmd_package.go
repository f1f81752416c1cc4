package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/packager"
	"github.com/spachava753/clangforge/internal/runner"
	"github.com/spachava753/clangforge/internal/verify"
)

func newPackageCmd() *cobra.Command {
	var configPath string
	var revisionFlag string

	cmd := &cobra.Command{
		Use:   "package <install-dir>",
		Short: "Package an installed toolchain into a checksummed archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			run := &runner.ExecRunner{}
			verifier := &verify.Verifier{Runner: run, Timeout: timeout(cfg.VerifyTimeoutSec)}

			p := &packager.Packager{
				Strategies: []packager.Strategy{
					&packager.SpecializedStrategy{
						Runner:    run,
						Script:    cfg.PackageScript,
						BuildDir:  cfg.BuildDir,
						OutputDir: cfg.OutputDir,
						Timeout:   timeout(cfg.PackageTimeoutSec),
					},
					&packager.GenericStrategy{
						Runner:    run,
						OutputDir: cfg.OutputDir,
						Timeout:   timeout(cfg.PackageTimeoutSec),
					},
				},
				Verifier:  verifier,
				OutputDir: cfg.OutputDir,
			}

			m := models.PackageManifest{
				BuildDate:   time.Now().UTC(),
				Revision:    revisionFlag,
				Arch:        cfg.Arch,
				PackageName: cfg.PackagePrefix,
			}

			archive, err := p.Package(cmd.Context(), models.BuildArtifact{InstallDir: args[0]}, m)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archive: %s\n", archive.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "Checksum: %s\n", archive.ChecksumPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Strategy: %s\n", archive.Strategy)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "pipeline configuration file")
	cmd.Flags().StringVar(&revisionFlag, "revision", "", "full commit hash the install tree was built from")
	cmd.MarkFlagRequired("revision")
	return cmd
}
