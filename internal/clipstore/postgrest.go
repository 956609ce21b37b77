package clipstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"

	"clipmaster/models"
)

// QueryClient is satisfied by both *postgrest.Client and the Supabase client.
type QueryClient interface {
	From(table string) *postgrest.QueryBuilder
}

// PostgrestRepository stores clips through the PostgREST API in front of the
// Supabase database.
type PostgrestRepository struct {
	client QueryClient
	table  string
	log    *logrus.Entry
}

var _ Repository = (*PostgrestRepository)(nil)

// NewPostgrestClient builds a PostgREST client for a Supabase project URL.
func NewPostgrestClient(supabaseURL, serviceKey string) (*postgrest.Client, error) {
	client := postgrest.NewClient(supabaseURL+"/rest/v1", "", map[string]string{
		"apikey":        serviceKey,
		"Authorization": fmt.Sprintf("Bearer %s", serviceKey),
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", client.ClientError)
	}
	return client, nil
}

// NewPostgrestRepository stores clips in table using client.
func NewPostgrestRepository(client QueryClient, table string, logger *logrus.Logger) *PostgrestRepository {
	if table == "" {
		table = DefaultTable
	}
	return &PostgrestRepository{
		client: client,
		table:  table,
		log:    logger.WithField("component", "clipstore.postgrest"),
	}
}

// Create inserts clip and returns its id.
func (r *PostgrestRepository) Create(ctx context.Context, clip models.Clip) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	row := map[string]interface{}{
		"id":                 clip.ID.String(),
		"user_id":            clip.OwnerID.String(),
		"source_kind":        string(clip.SourceKind),
		"original_video_url": clip.OriginalSourceURI,
		"clip_url":           clip.ArtifactURI,
		"title":              clip.Title,
		"status":             string(clip.Status),
		"created_at":         clip.CreatedAt.UTC(),
		"updated_at":         clip.UpdatedAt.UTC(),
	}
	if clip.Caption != nil {
		row["caption"] = *clip.Caption
	}

	var results []models.Clip
	body, _, err := r.client.From(r.table).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert clip: %w", err)
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return uuid.Nil, fmt.Errorf("decode inserted clip: %w", err)
	}
	if len(results) == 0 {
		return uuid.Nil, fmt.Errorf("insert clip %s returned no data", clip.ID)
	}

	r.log.WithFields(logrus.Fields{"clip_id": results[0].ID, "user_id": clip.OwnerID}).Info("Clip created")
	return results[0].ID, nil
}

// Get returns the owner's clip with id.
func (r *PostgrestRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clips []models.Clip
	_, err := r.client.From(r.table).
		Select("*", "", false).
		Eq("id", id.String()).
		Eq("user_id", ownerID.String()).
		ExecuteTo(&clips)
	if err != nil {
		return nil, fmt.Errorf("get clip %s: %w", id, err)
	}
	if len(clips) == 0 {
		return nil, ErrNotFound
	}
	return &clips[0], nil
}

// ListByOwner returns the owner's clips, newest first.
func (r *PostgrestRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clips []models.Clip
	_, err := r.client.From(r.table).
		Select("*", "", false).
		Eq("user_id", ownerID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&clips)
	if err != nil {
		return nil, fmt.Errorf("list clips for %s: %w", ownerID, err)
	}
	if clips == nil {
		clips = []models.Clip{}
	}
	SortNewestFirst(clips)
	return clips, nil
}

// ChangedSince returns clips updated after since, oldest change first.
func (r *PostgrestRepository) ChangedSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clips []models.Clip
	_, err := r.client.From(r.table).
		Select("*", "", false).
		Gt("updated_at", since.UTC().Format(time.RFC3339Nano)).
		Order("updated_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		ExecuteTo(&clips)
	if err != nil {
		return nil, fmt.Errorf("changed clips since %s: %w", since.Format(time.RFC3339Nano), err)
	}
	return clips, nil
}

// UpdateMetadata sets worker metadata on a processing clip.
func (r *PostgrestRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, meta models.ClipMetadata, now time.Time) (*models.Clip, error) {
	return r.updateProcessing(ctx, id, metadataFields(meta, now))
}

// Finalize moves a processing clip to its terminal status.
func (r *PostgrestRepository) Finalize(ctx context.Context, id uuid.UUID, fin models.Finalization, now time.Time) (*models.Clip, error) {
	if err := ValidateFinalization(fin); err != nil {
		return nil, err
	}
	clip, err := r.updateProcessing(ctx, id, finalizeFields(fin, now))
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"clip_id": id, "status": clip.Status}).Info("Clip finalized")
	return clip, nil
}

// updateProcessing applies fields only while the row is still processing.
func (r *PostgrestRepository) updateProcessing(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []models.Clip
	body, _, err := r.client.From(r.table).
		Update(fields, "representation", "").
		Eq("id", id.String()).
		Eq("status", string(models.StatusProcessing)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("update clip %s: %w", id, err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &results); err != nil {
			return nil, fmt.Errorf("decode updated clip %s: %w", id, err)
		}
	}
	if len(results) == 0 {
		return nil, conditionalMiss(r.lookup(id))
	}
	return &results[0], nil
}

func (r *PostgrestRepository) lookup(id uuid.UUID) (*models.Clip, error) {
	var clips []models.Clip
	_, err := r.client.From(r.table).
		Select("*", "", false).
		Eq("id", id.String()).
		ExecuteTo(&clips)
	if err != nil {
		return nil, fmt.Errorf("lookup clip %s: %w", id, err)
	}
	if len(clips) == 0 {
		return nil, ErrNotFound
	}
	return &clips[0], nil
}
