package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spachava753/clangforge/internal/manifest"
	"github.com/spachava753/clangforge/internal/models"
	"github.com/spachava753/clangforge/internal/revision"
	"github.com/spachava753/clangforge/internal/runner"
)

func newResolveCmd() *cobra.Command {
	var configPath string
	var revisionOverride string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the pinned revision to a full commit hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			run := &runner.ExecRunner{}

			var spec models.RevisionSpec
			if revisionOverride != "" {
				spec = models.RevisionSpec(revisionOverride)
			} else {
				reader := manifest.NewReader(
					&manifest.HelperStrategy{Runner: run},
					&manifest.ScanStrategy{},
				)
				var strategy string
				spec, strategy, err = reader.Read(cmd.Context(), cfg.ManifestPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Manifest strategy: %s\n", strategy)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Revision spec: %s (%s)\n", spec, spec.Kind())
			if dryRun {
				return nil
			}

			resolver := &revision.Resolver{
				Runner:           run,
				RemoteURL:        cfg.RemoteURL,
				Dir:              cfg.SourceDir,
				DefaultBranch:    cfg.DefaultBranch,
				AllowTipFallback: cfg.AllowTipFallback,
				FetchTimeout:     timeout(cfg.FetchTimeoutSec),
			}
			tree, err := resolver.Resolve(cmd.Context(), spec)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", tree.Commit)
			if tree.Substituted {
				fmt.Fprintln(cmd.OutOrStdout(), "Substituted: branch tip used instead of pinned revision")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "pipeline configuration file")
	cmd.Flags().StringVar(&revisionOverride, "revision", "", "resolve this revision instead of the manifest's")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and classify the revision without fetching")
	return cmd
}
