// Package blob opens the configured attachment store for cage files.
package blob

import (
	"cagecore/internal/blob/core"
	"cagecore/internal/config"
	"cagecore/internal/infra/blob/fs"
	"cagecore/internal/infra/blob/memory"
	"cagecore/internal/infra/blob/s3"
	"context"
	"fmt"
)

// Open selects a core.Store from configuration. Driver "none" disables
// attachment handling and returns a nil store.
func Open(ctx context.Context, cfg config.Blob) (core.Store, error) {
	switch core.Driver(cfg.Driver) {
	case "", core.DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			PathStyle:       cfg.S3.PathStyle,
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
