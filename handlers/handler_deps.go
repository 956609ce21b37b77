package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clipmaster/internal/clipstore"
	"clipmaster/internal/download"
	"clipmaster/internal/ingest"
	"clipmaster/internal/objectstore"
	"clipmaster/internal/realtime"
	"clipmaster/internal/source"
	"clipmaster/models"
)

// Ingester accepts new submissions.
type Ingester interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, in source.Input, opts ...ingest.IngestOption) (uuid.UUID, error)
}

// Downloader opens finished artifacts.
type Downloader interface {
	Download(ctx context.Context, clip *models.Clip) (*download.Artifact, error)
}

// WorkerReporter records processing results.
type WorkerReporter interface {
	ReportMetadata(ctx context.Context, id uuid.UUID, meta models.ClipMetadata) (*models.Clip, error)
	Complete(ctx context.Context, id uuid.UUID, artifactURI string, meta models.ClipMetadata) (*models.Clip, error)
	Fail(ctx context.Context, id uuid.UUID, reason string) (*models.Clip, error)
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Logger    *logrus.Logger
	Clips     clipstore.Repository
	Ingester  Ingester
	Downloads Downloader
	Finalizer WorkerReporter
	Hub       *realtime.Hub
	Uploads   *objectstore.Tracker
	Keepalive time.Duration
}

// NewApplicationHandler creates a new ApplicationHandler with the given dependencies.
func NewApplicationHandler(logger *logrus.Logger, clips clipstore.Repository, ingester Ingester, downloads Downloader,
	finalizer WorkerReporter, hub *realtime.Hub, uploads *objectstore.Tracker) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:    logger,
		Clips:     clips,
		Ingester:  ingester,
		Downloads: downloads,
		Finalizer: finalizer,
		Hub:       hub,
		Uploads:   uploads,
		Keepalive: 25 * time.Second,
	}
}
