package snapshot

import (
	"context"

	"imgfs/internal/config"
	"imgfs/internal/storage"
)

// NewStorage builds the backend selected by cfg. It returns nil, nil when
// snapshots are disabled.
func NewStorage(ctx context.Context, cfg config.SnapshotConfig) (storage.SnapshotStorage, error) {
	switch cfg.Backend {
	case config.SnapshotBackendLocal:
		local, err := storage.NewLocalStore(cfg.Root)
		if err != nil {
			return nil, err
		}
		return local, nil
	case config.SnapshotBackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3ClientOptions{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(storage.S3Options{
			Client: client,
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
		}), nil
	default:
		return nil, nil
	}
}
