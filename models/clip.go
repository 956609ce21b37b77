package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind tells how a clip's source video entered the system.
type SourceKind string

const (
	SourceUploadedFile SourceKind = "uploaded_file"
	SourceRemoteURL    SourceKind = "remote_url"
)

// DefaultTitle is used when neither the file name nor the URL yields a title.
const DefaultTitle = "Untitled Video"

// Clip represents the structure of a clip record in the database.
// Column names follow the clips table; pointers mark nullable columns.
type Clip struct {
	ID                uuid.UUID  `json:"id"`
	OwnerID           uuid.UUID  `json:"user_id"`
	SourceKind        SourceKind `json:"source_kind"`
	OriginalSourceURI string     `json:"original_video_url"`
	ArtifactURI       string     `json:"clip_url"` // Placeholder until Status is completed
	Title             string     `json:"title"`
	Caption           *string    `json:"caption,omitempty"`
	Status            ClipStatus `json:"status"`
	DurationSeconds   *float64   `json:"duration,omitempty"`
	ThumbnailURI      *string    `json:"thumbnail_url,omitempty"`
	AspectRatio       *string    `json:"aspect_ratio,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewClip builds a freshly submitted clip in the processing state.
// The placeholder URI is stored as both the original source and the artifact.
func NewClip(ownerID uuid.UUID, kind SourceKind, placeholderURI, title string, caption *string, now time.Time) Clip {
	if title == "" {
		title = DefaultTitle
	}
	now = now.UTC()
	return Clip{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		SourceKind:        kind,
		OriginalSourceURI: placeholderURI,
		ArtifactURI:       placeholderURI,
		Title:             title,
		Caption:           caption,
		Status:            StatusProcessing,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Downloadable reports whether ArtifactURI points at a finished artifact.
func (c *Clip) Downloadable() bool {
	return c.Status == StatusCompleted
}

// ClipMetadata carries the optional fields the processing worker fills in.
type ClipMetadata struct {
	DurationSeconds *float64 `json:"duration,omitempty" validate:"omitempty,gte=0"`
	ThumbnailURI    *string  `json:"thumbnail_url,omitempty" validate:"omitempty,url"`
	AspectRatio     *string  `json:"aspect_ratio,omitempty"`
}

// Empty reports whether no field is set.
func (m ClipMetadata) Empty() bool {
	return m.DurationSeconds == nil && m.ThumbnailURI == nil && m.AspectRatio == nil
}

// Finalization is the single terminal write the worker performs on a clip.
type Finalization struct {
	Status        ClipStatus
	ArtifactURI   string // required when Status is completed
	FailureReason string
	Metadata      ClipMetadata
}
