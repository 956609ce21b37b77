package clipstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"clipmaster/models"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

var clipColumns = []string{
	"id", "user_id", "source_kind", "original_video_url", "clip_url", "title", "caption",
	"status", "duration", "thumbnail_url", "aspect_ratio", "failure_reason", "created_at", "updated_at",
}

// SQLRepository stores clips directly in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	table   string
	builder sq.StatementBuilderType
	log     *logrus.Entry
}

var _ Repository = (*SQLRepository)(nil)

// OpenSQL opens dsn with the driver for dialect and wraps it in a repository.
func OpenSQL(dialect Dialect, dsn, table string, logger *logrus.Logger) (*SQLRepository, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	return NewSQLRepository(db, dialect, table, logger), nil
}

// NewSQLRepository wraps an open database handle.
func NewSQLRepository(db *sql.DB, dialect Dialect, table string, logger *logrus.Logger) *SQLRepository {
	if table == "" {
		table = DefaultTable
	}
	var placeholder sq.PlaceholderFormat = sq.Dollar
	if dialect == DialectSQLite {
		placeholder = sq.Question
	}
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		table:   table,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		log:     logger.WithField("component", "clipstore.sql"),
	}
}

// Migrate creates the clips table and its indexes if missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	uuidType, floatType, timeType := "UUID", "DOUBLE PRECISION", "TIMESTAMPTZ"
	if r.dialect == DialectSQLite {
		uuidType, floatType, timeType = "TEXT", "REAL", "TIMESTAMP"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id %[2]s PRIMARY KEY,
			user_id %[2]s NOT NULL,
			source_kind TEXT NOT NULL,
			original_video_url TEXT NOT NULL,
			clip_url TEXT NOT NULL,
			title TEXT NOT NULL,
			caption TEXT,
			status TEXT NOT NULL DEFAULT 'processing' CHECK (status IN ('processing', 'completed', 'failed')),
			duration %[3]s,
			thumbnail_url TEXT,
			aspect_ratio TEXT,
			failure_reason TEXT,
			created_at %[4]s NOT NULL,
			updated_at %[4]s NOT NULL
		)`, r.table, uuidType, floatType, timeType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_user_created ON %[1]s (user_id, created_at DESC)`, r.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_updated ON %[1]s (updated_at)`, r.table),
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", r.table, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Create inserts clip and returns its id.
func (r *SQLRepository) Create(ctx context.Context, clip models.Clip) (uuid.UUID, error) {
	query, args, err := r.builder.Insert(r.table).
		Columns(clipColumns...).
		Values(
			clip.ID.String(), clip.OwnerID.String(), string(clip.SourceKind), clip.OriginalSourceURI,
			clip.ArtifactURI, clip.Title, clip.Caption, string(clip.Status), clip.DurationSeconds,
			clip.ThumbnailURI, clip.AspectRatio, clip.FailureReason, clip.CreatedAt.UTC(), clip.UpdatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return uuid.Nil, fmt.Errorf("insert clip: %w", err)
	}

	r.log.WithFields(logrus.Fields{"clip_id": clip.ID, "user_id": clip.OwnerID}).Info("Clip created")
	return clip.ID, nil
}

// Get returns the owner's clip with id.
func (r *SQLRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Clip, error) {
	return r.selectOne(ctx, sq.Eq{"id": id.String(), "user_id": ownerID.String()})
}

// ListByOwner returns the owner's clips, newest first.
func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Clip, error) {
	q := r.builder.Select(clipColumns...).
		From(r.table).
		Where(sq.Eq{"user_id": ownerID.String()}).
		OrderBy("created_at DESC", "id DESC")
	clips, err := r.selectMany(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list clips for %s: %w", ownerID, err)
	}
	SortNewestFirst(clips)
	return clips, nil
}

// ChangedSince returns clips updated after since, oldest change first.
func (r *SQLRepository) ChangedSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error) {
	q := r.builder.Select(clipColumns...).
		From(r.table).
		Where(sq.Gt{"updated_at": since.UTC()}).
		OrderBy("updated_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	clips, err := r.selectMany(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("changed clips since %s: %w", since.Format(time.RFC3339Nano), err)
	}
	return clips, nil
}

// UpdateMetadata sets worker metadata on a processing clip.
func (r *SQLRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, meta models.ClipMetadata, now time.Time) (*models.Clip, error) {
	return r.updateProcessing(ctx, id, metadataFields(meta, now))
}

// Finalize moves a processing clip to its terminal status.
func (r *SQLRepository) Finalize(ctx context.Context, id uuid.UUID, fin models.Finalization, now time.Time) (*models.Clip, error) {
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

func (r *SQLRepository) updateProcessing(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Clip, error) {
	query, args, err := r.builder.Update(r.table).
		SetMap(fields).
		Where(sq.Eq{"id": id.String(), "status": string(models.StatusProcessing)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update clip %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update clip %s: %w", id, err)
	}

	current, lookupErr := r.selectOne(ctx, sq.Eq{"id": id.String()})
	if n == 0 {
		return nil, conditionalMiss(current, lookupErr)
	}
	return current, lookupErr
}

func (r *SQLRepository) selectOne(ctx context.Context, where sq.Eq) (*models.Clip, error) {
	query, args, err := r.builder.Select(clipColumns...).From(r.table).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	clip, err := scanClip(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &clip, nil
}

func (r *SQLRepository) selectMany(ctx context.Context, q sq.SelectBuilder) ([]models.Clip, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clips := []models.Clip{}
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClip(row rowScanner) (models.Clip, error) {
	var (
		c                  models.Clip
		id, owner          string
		kind, status       string
		createdAt, updated time.Time
	)
	err := row.Scan(
		&id, &owner, &kind, &c.OriginalSourceURI, &c.ArtifactURI, &c.Title, &c.Caption,
		&status, &c.DurationSeconds, &c.ThumbnailURI, &c.AspectRatio, &c.FailureReason, &createdAt, &updated,
	)
	if err != nil {
		return models.Clip{}, err
	}

	if c.ID, err = uuid.Parse(id); err != nil {
		return models.Clip{}, fmt.Errorf("clip id %q: %w", id, err)
	}
	if c.OwnerID, err = uuid.Parse(owner); err != nil {
		return models.Clip{}, fmt.Errorf("clip %s owner %q: %w", id, owner, err)
	}
	if c.Status, err = models.ParseClipStatus(status); err != nil {
		return models.Clip{}, fmt.Errorf("clip %s: %w", id, err)
	}
	c.SourceKind = models.SourceKind(kind)
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = updated.UTC()
	return c, nil
}
