package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/romdo/extpack/internal/bundle"
)

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build [target|all]",
		Short: "Build the extension for one target or all of them",
		Long: `Builds dist/<target>/ and dist/<target>.zip for the given target, or for
every configured target when the argument is omitted or "all".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}

			b := bundle.NewBuilder(a.cfg, a.log.Named("bundle"))
			targets, err := b.Resolve(arg)
			if err != nil {
				return err
			}

			results, err := b.BuildAll(cmd.Context(), targets)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range results {
				fmt.Fprintf(out, "%-10s %s (%s)\n",
					res.Target, res.ZipPath, humanize.Bytes(uint64(res.SizeBytes)))
			}

			return nil
		},
	}
}

func newTargetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range a.cfg.Targets {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}

			return nil
		},
	}
}
