// Package clipstore is the authoritative store of clip records. Writes are
// single-record and optimistic; terminal status writes are conditional on the
// record still being in processing.
package clipstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipmaster/models"
)

// DefaultTable is the clips table name.
const DefaultTable = "clips"

var (
	// ErrNotFound is returned when no clip matches the id (and owner, where given).
	ErrNotFound = errors.New("clip not found")
	// ErrClipFinalized is returned when a write targets a clip that already
	// reached a terminal status.
	ErrClipFinalized = errors.New("clip already finalized")
	// ErrInvalidFinalization is returned for a malformed terminal write.
	ErrInvalidFinalization = errors.New("invalid finalization")
)

// Repository stores clip records.
type Repository interface {
	// Create inserts clip as given and returns its id.
	Create(ctx context.Context, clip models.Clip) (uuid.UUID, error)
	// Get returns the owner's clip with id.
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Clip, error)
	// ListByOwner returns the owner's clips, newest first, ties broken by id.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Clip, error)
	// ChangedSince returns clips of any owner whose updated_at is after since,
	// oldest change first.
	ChangedSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error)
	// UpdateMetadata sets worker metadata on a clip that is still processing.
	UpdateMetadata(ctx context.Context, id uuid.UUID, meta models.ClipMetadata, now time.Time) (*models.Clip, error)
	// Finalize performs the single terminal transition of a processing clip.
	Finalize(ctx context.Context, id uuid.UUID, fin models.Finalization, now time.Time) (*models.Clip, error)
}

// ValidateFinalization checks a terminal write before it reaches storage.
func ValidateFinalization(fin models.Finalization) error {
	if !models.StatusProcessing.CanTransitionTo(fin.Status) {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidFinalization, fin.Status)
	}
	if fin.Status == models.StatusCompleted && strings.TrimSpace(fin.ArtifactURI) == "" {
		return fmt.Errorf("%w: completed clip needs an artifact uri", ErrInvalidFinalization)
	}
	return nil
}

// SortNewestFirst orders clips by created_at descending, then id descending,
// so equal timestamps still come back in one deterministic order.
func SortNewestFirst(clips []models.Clip) {
	sort.SliceStable(clips, func(i, j int) bool {
		if !clips[i].CreatedAt.Equal(clips[j].CreatedAt) {
			return clips[i].CreatedAt.After(clips[j].CreatedAt)
		}
		return clips[i].ID.String() > clips[j].ID.String()
	})
}

// finalizeFields lists the columns a terminal write touches.
func finalizeFields(fin models.Finalization, now time.Time) map[string]interface{} {
	fields := metadataFields(fin.Metadata, now)
	fields["status"] = string(fin.Status)
	if fin.Status == models.StatusCompleted {
		fields["clip_url"] = fin.ArtifactURI
	}
	if fin.Status == models.StatusFailed && fin.FailureReason != "" {
		fields["failure_reason"] = fin.FailureReason
	}
	return fields
}

func metadataFields(meta models.ClipMetadata, now time.Time) map[string]interface{} {
	fields := map[string]interface{}{"updated_at": now.UTC()}
	if meta.DurationSeconds != nil {
		fields["duration"] = *meta.DurationSeconds
	}
	if meta.ThumbnailURI != nil {
		fields["thumbnail_url"] = *meta.ThumbnailURI
	}
	if meta.AspectRatio != nil {
		fields["aspect_ratio"] = *meta.AspectRatio
	}
	return fields
}

// conditionalMiss explains why a write guarded by status = processing matched
// no row.
func conditionalMiss(existing *models.Clip, err error) error {
	if err != nil {
		return err
	}
	if existing.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrClipFinalized, existing.ID, existing.Status)
	}
	return fmt.Errorf("clip %s changed concurrently", existing.ID)
}
