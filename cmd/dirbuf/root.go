package main

import (
	"os"
	"path/filepath"

	"dirbuf/internal/buffer"
	"dirbuf/internal/config"
	"dirbuf/internal/errors"
	"dirbuf/internal/log"
	"dirbuf/internal/storage"
	"dirbuf/internal/tui"
	"dirbuf/internal/watch"

	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	cfgFile string
	debug   bool
	cfg     *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var lastDir string

	rootCmd := &cobra.Command{
		Use:   "dirbuf [directory]",
		Short: "Browse and edit directories as editable lists",
		Long: `dirbuf shows a directory as a list of rows. Rows can be picked, cut,
copied, pasted, deleted, expanded in place and renamed by editing their text.
Remote storage (rclone remotes or S3 buckets) is browsed through a local cache.`,
		Version:      version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := targetDir(args)
			if err != nil {
				return err
			}
			backend, err := newBackend(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			return opts.browse(backend, dir, lastDir)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/dirbuf/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "write debug entries to the log")
	rootCmd.PersistentFlags().StringVar(&lastDir, "last-dir", "", "write the last directory shown to this file on exit")

	rootCmd.AddCommand(newRemotesCmd(opts, &lastDir))
	rootCmd.AddCommand(newLsCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// load reads the configuration and points the log at its file.
func (o *globalOptions) load() error {
	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.LoadConfigFile(o.cfgFile)
	} else {
		o.cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	logOpts := []log.Option{log.WithFile(o.cfg.Log.File)}
	if o.cfg.Log.JSON {
		logOpts = append(logOpts, log.WithJSON())
	}
	log.Configure(logOpts...)
	log.SetDebug(o.debug || o.cfg.Log.Debug)
	return nil
}

func targetDir(args []string) (string, error) {
	if len(args) == 0 {
		return os.Getwd()
	}
	return filepath.Abs(config.ExpandHome(args[0]))
}

// browse runs the TUI on dir and records the final directory in lastDir.
func (o *globalOptions) browse(backend storage.Backend, dir, lastDir string) error {
	watcher, err := watch.New()
	if err != nil {
		log.LogError(err, "file watching disabled")
		watcher = nil
	}

	cwd, err := tui.Run(dir, tui.Options{
		Config:  o.cfg,
		Backend: backend,
		Watcher: watcher,
		Labels:  buffer.NewLabels(),
	})
	if err != nil {
		return err
	}

	if lastDir != "" {
		if err := os.WriteFile(lastDir, []byte(cwd+"\n"), 0644); err != nil {
			return errors.NewFileError("failed to write last directory", lastDir, errors.FileAccessDenied, err)
		}
	}
	return nil
}
