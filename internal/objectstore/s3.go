package objectstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Store writes objects to an AWS S3 bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	keys          *KeyClock
	log           *logrus.Entry
}

var _ Store = (*S3Store)(nil)

// NewS3Store loads AWS configuration from the environment. When publicBaseURL
// is empty the virtual-hosted bucket URL for the configured region is used.
func NewS3Store(ctx context.Context, bucket, region, publicBaseURL string, logger *logrus.Logger) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}

	return &S3Store{
		client:        s3.NewFromConfig(cfg),
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		keys:          NewKeyClock(),
		log:           logger.WithField("component", "objectstore.s3"),
	}, nil
}

// Upload puts obj and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, obj Object) (string, error) {
	key := s.keys.Key(obj.OwnerID, obj.Extension)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body(obj),
		ContentType: aws.String(contentType(obj)),
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%w: s3://%s/%s: %w", ErrUploadFailed, s.bucket, key, err)
	}

	s.log.WithField("key", key).Infof("Uploaded to S3: s3://%s/%s", s.bucket, key)
	return joinURL(s.publicBaseURL, key), nil
}
