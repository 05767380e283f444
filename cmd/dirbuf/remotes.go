package main

import (
	"dirbuf/internal/errors"

	"github.com/spf13/cobra"
)

func newRemotesCmd(opts *globalOptions, lastDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remotes",
		Short: "Browse the configured remote storage",
		Long: `Opens the cache directory whose entries are the remotes of the configured
provider: rclone remotes, or S3 buckets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := newBackend(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			if backend.Remote == nil {
				return errors.NewConfigError("no remote provider available", opts.cfg.Remote.Provider, errors.InvalidConfig, nil)
			}
			return opts.browse(backend, backend.Remote.Root(), *lastDir)
		},
	}
}
