package objectstore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// MinioStore writes objects to a MinIO (or any S3-compatible) endpoint.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	keys          *KeyClock
	log           *logrus.Entry
}

var _ Store = (*MinioStore)(nil)

// MinioOptions configures the MinIO connection.
type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// NewMinioStore connects and creates the bucket if it does not exist.
func NewMinioStore(ctx context.Context, opts MinioOptions, logger *logrus.Logger) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	base := opts.PublicBaseURL
	if base == "" {
		base = joinURL(client.EndpointURL().String(), opts.Bucket)
	}

	return &MinioStore{
		client:        client,
		bucket:        opts.Bucket,
		publicBaseURL: base,
		keys:          NewKeyClock(),
		log:           logger.WithField("component", "objectstore.minio"),
	}, nil
}

// Upload puts obj and returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, obj Object) (string, error) {
	key := s.keys.Key(obj.OwnerID, obj.Extension)

	size := obj.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, body(obj), size, minio.PutObjectOptions{
		ContentType: contentType(obj),
	})
	if err != nil {
		return "", fmt.Errorf("%w: minio %s/%s: %w", ErrUploadFailed, s.bucket, key, err)
	}

	s.log.WithFields(logrus.Fields{"key": key, "size": info.Size}).Info("Object uploaded")
	return joinURL(s.publicBaseURL, key), nil
}
