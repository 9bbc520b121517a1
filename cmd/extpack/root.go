package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/romdo/extpack/internal/config"
	"github.com/romdo/extpack/internal/logging"
)

// app holds what the subcommands share once the root command has run its
// pre-run hook.
type app struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "extpack",
		Short: "Build and package a browser extension for several browsers",
		Long: `extpack copies the extension sources for every configured target,
writes the target's merged manifest.json and zips the result into dist/.

It also manages the extension's stored state, which is cleaned against a
template of valid keys and saved through a debounced writer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log, a.verbose)
			if err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}

			a.cfg = cfg
			a.log = logger
			a.log.Debug("configuration loaded",
				zap.String("config", a.configPath),
				zap.Strings("targets", cfg.Targets),
				zap.String("storage", cfg.Storage.Driver),
			)

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"config file (default "+config.DefaultFile+" if present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"enable debug logging")

	root.AddCommand(
		newBuildCmd(a),
		newTargetsCmd(a),
		newStateCmd(a),
	)

	return root
}
