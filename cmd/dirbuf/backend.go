package main

import (
	"context"

	"dirbuf/internal/config"
	"dirbuf/internal/errors"
	"dirbuf/internal/log"
	"dirbuf/internal/storage"
)

// newRemote returns the configured remote provider, or nil when rclone is
// selected but not installed.
func newRemote(ctx context.Context, cfg *config.Config) (storage.Remote, error) {
	switch cfg.Remote.Provider {
	case "s3":
		s3cfg := cfg.Remote.S3
		remote, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:     s3cfg.Endpoint,
			Region:       s3cfg.Region,
			AccessKey:    s3cfg.AccessKey,
			SecretKey:    s3cfg.SecretKey,
			Buckets:      s3cfg.Buckets,
			UsePathStyle: s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, errors.Wrap(err, "s3 remote")
		}
		return remote, nil
	default:
		rclone := storage.NewRclone(cfg.Remote.Rclone)
		if !rclone.Available() {
			log.Debugf("rclone binary %q not found, remotes disabled", cfg.Remote.Rclone)
			return nil, nil
		}
		return rclone, nil
	}
}

// newBackend builds the router over the local filesystem and, when a
// provider is available, the cached remote mirror.
func newBackend(ctx context.Context, cfg *config.Config) (*storage.Router, error) {
	local := storage.NewLocal(cfg.ShowHidden, cfg.Collision)

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return storage.NewRouter(local, nil), nil
	}

	cached, err := storage.NewCached(cfg.CacheDir, remote, cfg.ShowHidden)
	if err != nil {
		return nil, err
	}
	return storage.NewRouter(local, cached), nil
}
