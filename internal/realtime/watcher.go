package realtime

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"clipmaster/models"
)

// DefaultBatch bounds one poll of the clips table.
const DefaultBatch = 200

// ChangeSource lists clips changed after a point in time, oldest first.
type ChangeSource interface {
	ChangedSince(ctx context.Context, since time.Time, limit int) ([]models.Clip, error)
}

// Watcher polls the clips table for rows written by other processes, such as
// the worker finalizing through the database directly, and feeds them to the
// hub.
type Watcher struct {
	source    ChangeSource
	hub       *Hub
	interval  time.Duration
	batch     int
	watermark time.Time
	log       *logrus.Entry
}

// NewWatcher polls source every interval. Only changes after start are
// reported.
func NewWatcher(source ChangeSource, hub *Hub, interval time.Duration, start time.Time, logger *logrus.Logger) *Watcher {
	return &Watcher{
		source:    source,
		hub:       hub,
		interval:  interval,
		batch:     DefaultBatch,
		watermark: start.UTC(),
		log:       logger.WithField("component", "realtime.watcher"),
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval).Info("Change watcher started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Change watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				w.log.WithError(err).Warn("Change poll failed")
			}
		}
	}
}

// Poll publishes every change past the watermark and reports how many new
// events reached the hub.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	published := 0
	for {
		clips, err := w.source.ChangedSince(ctx, w.watermark, w.batch)
		if err != nil {
			return published, err
		}
		for _, clip := range clips {
			kind := models.ChangeUpdate
			if clip.CreatedAt.Equal(clip.UpdatedAt) {
				kind = models.ChangeInsert
			}
			if w.hub.Publish(models.EventFor(kind, clip)) {
				published++
			}
			if clip.UpdatedAt.After(w.watermark) {
				w.watermark = clip.UpdatedAt
			}
		}
		if len(clips) < w.batch {
			return published, nil
		}
	}
}
