package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/clangforge/internal/executor"
	"github.com/spachava753/clangforge/internal/runner"
)

func newBuildCmd() *cobra.Command {
	var configPath string
	var revisionOverride string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full pipeline: resolve, patch, build, verify, package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if revisionOverride != "" {
				cfg.Revision = revisionOverride
			}

			pipeline, err := executor.NewPipeline(cfg, &runner.ExecRunner{})
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nRevision: %s\n", result.Revision)
			if result.Substituted {
				fmt.Fprintf(out, "Substituted: branch tip used instead of pinned revision\n")
			}
			applied, skipped, failed := result.Patches.Counts()
			fmt.Fprintf(out, "Patches: %d applied, %d skipped, %d failed\n", applied, skipped, failed)
			fmt.Fprintf(out, "Build strategy: %s\n", result.BuildStrategy)
			fmt.Fprintf(out, "Archive: %s\n", result.ArchivePath)
			fmt.Fprintf(out, "Checksum: %s\n", result.ChecksumPath)
			fmt.Fprintf(out, "Duration: %.2fs\n", result.TotalDurationSec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "pipeline configuration file")
	cmd.Flags().StringVar(&revisionOverride, "revision", "", "build this revision instead of the manifest's")
	return cmd
}
