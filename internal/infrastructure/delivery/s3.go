package delivery

import (
	"context"
	"fmt"
	"path"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// S3Deliverer uploads artifacts to the destination bucket under its prefix
type S3Deliverer struct {
	storage storage.ObjectStorage
	logger  *zap.Logger
}

// NewS3Deliverer creates an object storage deliverer
func NewS3Deliverer(objects storage.ObjectStorage, logger *zap.Logger) *S3Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Deliverer{storage: objects, logger: logger}
}

// ObjectKey returns the key an artifact is stored under
func ObjectKey(prefix, fileName string) string {
	if prefix == "" {
		return fileName
	}
	return path.Join(prefix, fileName)
}

// Deliver implements Deliverer
func (d *S3Deliverer) Deliver(ctx context.Context, dest export.Destination, artifact Artifact) (string, error) {
	if dest.Kind != export.DestinationS3 {
		return "", fmt.Errorf("s3 deliverer cannot handle %q destinations", dest.Kind)
	}
	key := ObjectKey(dest.Config.Prefix, artifact.FileName)

	location, err := d.storage.PutObject(ctx, dest.Config.Bucket, key, artifact.Body, artifact.ContentType)
	if err != nil {
		return "", fmt.Errorf("upload to s3://%s/%s failed: %w", dest.Config.Bucket, key, err)
	}

	d.logger.Debug("Export uploaded",
		zap.String("location", location),
		zap.Int("rows", artifact.RowCount),
	)
	return location, nil
}

var _ Deliverer = (*S3Deliverer)(nil)
