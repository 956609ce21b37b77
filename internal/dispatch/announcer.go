// Package dispatch hands newly recorded clips to the external processing
// worker. Hand-off is fire-and-forget: the clip record is already the source
// of truth, so a lost announcement only delays processing.
package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clipmaster/internal/worker"
	"clipmaster/models"
)

// Announcement tells the worker which clip to process.
type Announcement struct {
	ClipID     uuid.UUID         `json:"clip_id"`
	OwnerID    uuid.UUID         `json:"owner_id"`
	SourceKind models.SourceKind `json:"source_kind"`
	SourceURI  string            `json:"source_uri"`
}

// AnnouncementFor builds the announcement for a freshly created clip.
func AnnouncementFor(clip models.Clip) Announcement {
	return Announcement{
		ClipID:     clip.ID,
		OwnerID:    clip.OwnerID,
		SourceKind: clip.SourceKind,
		SourceURI:  clip.OriginalSourceURI,
	}
}

// Announcer publishes announcements.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

// Noop discards announcements. Used when no queue is configured.
type Noop struct{}

// Announce does nothing.
func (Noop) Announce(context.Context, Announcement) error { return nil }

// AnnounceJob publishes one announcement from a background worker.
type AnnounceJob struct {
	announcer Announcer
	msg       Announcement
}

// NewAnnounceJob creates an AnnounceJob.
func NewAnnounceJob(announcer Announcer, msg Announcement) *AnnounceJob {
	return &AnnounceJob{announcer: announcer, msg: msg}
}

// ID returns the unique identifier of the job.
func (j *AnnounceJob) ID() string {
	return "announce-" + j.msg.ClipID.String()
}

// Execute publishes the announcement.
func (j *AnnounceJob) Execute(ctx context.Context) error {
	if err := j.announcer.Announce(ctx, j.msg); err != nil {
		return fmt.Errorf("announce clip %s: %w", j.msg.ClipID, err)
	}
	return nil
}

// Background runs announcements on a worker pool so ingestion never waits on
// the queue.
type Background struct {
	dispatcher *worker.Dispatcher
	next       Announcer
	log        *logrus.Entry
}

// NewBackground announces through next on dispatcher's workers.
func NewBackground(dispatcher *worker.Dispatcher, next Announcer, logger *logrus.Logger) *Background {
	return &Background{
		dispatcher: dispatcher,
		next:       next,
		log:        logger.WithField("component", "dispatch.background"),
	}
}

// Announce queues the announcement and returns immediately.
func (b *Background) Announce(_ context.Context, a Announcement) error {
	job := NewAnnounceJob(b.next, a)
	if err := b.dispatcher.SubmitJob(job); err != nil {
		b.log.WithError(err).WithField("clip_id", a.ClipID).Warn("Announcement not queued")
		return err
	}
	return nil
}
