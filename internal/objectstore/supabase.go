package objectstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore writes objects to a Supabase Storage bucket.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
	keys   *KeyClock
	log    *logrus.Entry
}

var _ Store = (*SupabaseStore)(nil)

// NewSupabaseStore uses the storage client of an initialized Supabase client.
func NewSupabaseStore(client *storage_go.Client, bucket string, logger *logrus.Logger) *SupabaseStore {
	return &SupabaseStore{
		client: client,
		bucket: bucket,
		keys:   NewKeyClock(),
		log:    logger.WithField("component", "objectstore.supabase"),
	}
}

// Upload stores obj under "<owner>/<timestamp>.<ext>" and returns its public URL.
func (s *SupabaseStore) Upload(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	key := s.keys.Key(obj.OwnerID, obj.Extension)
	ct := contentType(obj)
	upsert := false

	s.log.WithFields(logrus.Fields{"bucket": s.bucket, "key": key, "size": obj.Size}).Info("Uploading object")
	_, err := s.client.UploadFile(s.bucket, key, body(obj), storage_go.FileOptions{
		ContentType: &ct,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("%w: supabase storage %s/%s: %w", ErrUploadFailed, s.bucket, key, err)
	}

	publicURL := s.client.GetPublicUrl(s.bucket, key).SignedURL
	s.log.WithField("key", key).Info("Object uploaded")
	return publicURL, nil
}
