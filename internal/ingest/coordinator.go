// Package ingest turns a raw submission into a clip record in the processing
// state: resolve, transfer, create, strictly in that order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clipmaster/internal/clipstore"
	"clipmaster/internal/dispatch"
	"clipmaster/internal/objectstore"
	"clipmaster/internal/source"
	"clipmaster/models"
)

var (
	// ErrUploadFailed means the file never reached object storage. No record exists.
	ErrUploadFailed = objectstore.ErrUploadFailed
	// ErrRepositoryWriteFailed means the clip record could not be created.
	ErrRepositoryWriteFailed = errors.New("repository write failed")
)

// Coordinator ingests submissions. It is safe for concurrent use; every call
// is independent and nothing is deduplicated.
type Coordinator struct {
	resolver  *source.Resolver
	store     objectstore.Store
	repo      clipstore.Repository
	announcer dispatch.Announcer
	tracker   *objectstore.Tracker
	now       func() time.Time
	log       *logrus.Entry
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAnnouncer hands every new clip to the processing worker.
func WithAnnouncer(a dispatch.Announcer) Option {
	return func(c *Coordinator) { c.announcer = a }
}

// WithTracker publishes upload progress under client-chosen ids.
func WithTracker(t *objectstore.Tracker) Option {
	return func(c *Coordinator) { c.tracker = t }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator wires the ingestion pipeline.
func NewCoordinator(store objectstore.Store, repo clipstore.Repository, logger *logrus.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver:  source.NewResolver(),
		store:     store,
		repo:      repo,
		announcer: dispatch.Noop{},
		now:       time.Now,
		log:       logger.WithField("component", "ingest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ingestOptions struct {
	uploadID string
}

// IngestOption tunes a single Ingest call.
type IngestOption func(*ingestOptions)

// WithUploadID registers the transfer with the tracker under id.
func WithUploadID(id string) IngestOption {
	return func(o *ingestOptions) { o.uploadID = id }
}

// Ingest validates in, stores its bytes if it is a file, and creates the
// clip record. It returns the new clip id without waiting for processing.
// Rejections from the resolver are returned unchanged.
func (c *Coordinator) Ingest(ctx context.Context, ownerID uuid.UUID, in source.Input, opts ...IngestOption) (uuid.UUID, error) {
	var o ingestOptions
	for _, opt := range opts {
		opt(&o)
	}

	resolved, err := c.resolver.Resolve(in)
	if err != nil {
		c.log.WithError(err).WithField("user_id", ownerID).Info("Submission rejected")
		return uuid.Nil, err
	}
	title := source.SuggestTitle(resolved)

	var placeholder string
	switch resolved.Kind {
	case models.SourceUploadedFile:
		placeholder, err = c.upload(ctx, ownerID, resolved, o.uploadID)
		if err != nil {
			return uuid.Nil, err
		}
	default:
		placeholder = resolved.URL.String()
	}

	// Bytes are durable now; finish the record even if the caller went away.
	clip := models.NewClip(ownerID, resolved.Kind, placeholder, title, resolved.Caption, c.now())
	id, err := c.repo.Create(context.WithoutCancel(ctx), clip)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"user_id": ownerID,
			"uri":     placeholder,
		}).Error("Failed to create clip record")
		return uuid.Nil, fmt.Errorf("%w: %w", ErrRepositoryWriteFailed, err)
	}
	clip.ID = id

	if err := c.announcer.Announce(ctx, dispatch.AnnouncementFor(clip)); err != nil {
		c.log.WithError(err).WithField("clip_id", id).Warn("Worker hand-off failed; clip stays processing")
	}

	c.log.WithFields(logrus.Fields{
		"clip_id":     id,
		"user_id":     ownerID,
		"source_kind": resolved.Kind,
	}).Info("Clip ingested")
	return id, nil
}

func (c *Coordinator) upload(ctx context.Context, ownerID uuid.UUID, resolved *source.Resolved, uploadID string) (string, error) {
	f := resolved.File

	var progress *objectstore.Progress
	if c.tracker != nil {
		progress = c.tracker.Start(ownerID, uploadID, f.Size)
	} else {
		progress = objectstore.NewProgress(f.Size)
	}

	uri, err := c.store.Upload(ctx, objectstore.Object{
		OwnerID:     ownerID,
		Extension:   resolved.Extension,
		ContentType: f.ContentType,
		Size:        f.Size,
		Body:        f.Body,
		Progress:    progress,
	})
	progress.Finish(err)
	if err != nil {
		if !errors.Is(err, ErrUploadFailed) {
			err = fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		c.log.WithError(err).WithFields(logrus.Fields{"user_id": ownerID, "file": f.Name}).Error("Upload failed")
		return "", err
	}
	return uri, nil
}
