package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/blob"
	"github.com/inkcircle/inkcircle-server/internal/config"
	"github.com/inkcircle/inkcircle-server/internal/logger"
)

// BlobStorage is the configured blob backend. Files is non-nil only for the
// local backend, which the API serves itself under /files/.
type BlobStorage struct {
	blob.Store
	Files http.Handler
}

// ProvideBlobStorage provides the blob backend for book files and covers.
func ProvideBlobStorage(i do.Injector) (*BlobStorage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Blob.Backend == config.BlobS3 {
		s3, err := blob.NewS3(context.Background(), blob.S3Config{
			Bucket:        cfg.Blob.S3Bucket,
			Region:        cfg.Blob.S3Region,
			Endpoint:      cfg.Blob.S3Endpoint,
			AccessKey:     cfg.Blob.S3AccessKey,
			SecretKey:     cfg.Blob.S3SecretKey,
			UsePathStyle:  cfg.Blob.S3UsePathStyle,
			PublicBaseURL: cfg.Blob.PublicBaseURL,
		}, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Blob storage ready", "backend", "s3", "bucket", cfg.Blob.S3Bucket)
		return &BlobStorage{Store: s3}, nil
	}

	local, err := blob.NewLocal(cfg.Blob.LocalPath, cfg.Blob.PublicBaseURL, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("Blob storage ready", "backend", "local", "path", cfg.Blob.LocalPath)
	return &BlobStorage{Store: local, Files: local.Handler()}, nil
}
