package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/runner"
	"github.com/spachava753/clangforge/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "verify <install-dir>",
		Short: "Smoke-test an installed toolchain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			verifier := &verify.Verifier{
				Runner:  &runner.ExecRunner{},
				Timeout: timeout(cfg.VerifyTimeoutSec),
			}
			if err := verifier.Verify(cmd.Context(), models.BuildArtifact{InstallDir: args[0]}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: toolchain at %s passed verification\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "pipeline configuration file")
	return cmd
}
