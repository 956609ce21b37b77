package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clipmaster/internal/clipstore"
	"clipmaster/models"
)

// PublishingRepository publishes a change event after every successful write
// of the wrapped repository.
type PublishingRepository struct {
	clipstore.Repository
	hub *Hub
}

var _ clipstore.Repository = (*PublishingRepository)(nil)

// NewPublishingRepository wraps repo.
func NewPublishingRepository(repo clipstore.Repository, hub *Hub) *PublishingRepository {
	return &PublishingRepository{Repository: repo, hub: hub}
}

// Create inserts clip and publishes an INSERT event.
func (p *PublishingRepository) Create(ctx context.Context, clip models.Clip) (uuid.UUID, error) {
	id, err := p.Repository.Create(ctx, clip)
	if err != nil {
		return id, err
	}
	clip.ID = id
	p.hub.Publish(models.EventFor(models.ChangeInsert, clip))
	return id, nil
}

// UpdateMetadata updates and publishes an UPDATE event.
func (p *PublishingRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, meta models.ClipMetadata, now time.Time) (*models.Clip, error) {
	clip, err := p.Repository.UpdateMetadata(ctx, id, meta, now)
	if err != nil {
		return nil, err
	}
	p.hub.Publish(models.EventFor(models.ChangeUpdate, *clip))
	return clip, nil
}

// Finalize finalizes and publishes an UPDATE event.
func (p *PublishingRepository) Finalize(ctx context.Context, id uuid.UUID, fin models.Finalization, now time.Time) (*models.Clip, error) {
	clip, err := p.Repository.Finalize(ctx, id, fin, now)
	if err != nil {
		return nil, err
	}
	p.hub.Publish(models.EventFor(models.ChangeUpdate, *clip))
	return clip, nil
}
