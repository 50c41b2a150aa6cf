package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"docchat/docchat/config"
	"docchat/docchat/utils/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const summaryPrefix = "summaries"

// MinIOSink stores summary PDFs in an S3-compatible bucket.
type MinIOSink struct {
	client *minio.Client
	bucket string
}

func NewMinIOSink(ctx context.Context, cfg config.Config) (*MinIOSink, error) {
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: cfg.MinIOSecure,
		},
	)
	if err != nil {
		return nil, err
	}
	// Create bucket if not exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	logging.AppLogger.Info("minio sink ready", zap.String("endpoint", cfg.MinIOEndpoint), zap.String("bucket", bucket))
	return &MinIOSink{client: client, bucket: bucket}, nil
}

func summaryKey(name string) string {
	return path.Join(summaryPrefix, path.Base(name))
}

// SaveSummary uploads the PDF and returns its s3:// location.
func (m *MinIOSink) SaveSummary(ctx context.Context, name string, pdf []byte) (string, error) {
	key := summaryKey(name)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(pdf), int64(len(pdf)), minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, key), nil
}

// GetSummary reads a stored summary back.
func (m *MinIOSink) GetSummary(ctx context.Context, name string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, summaryKey(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
