package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType mirrors the row-level change kinds of the clips table feed.
// Clips are never deleted, so there is no DELETE kind.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeEvent notifies an observer that one clip row changed.
// The payload is a hint only; observers should re-list to reconcile.
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	ClipID     uuid.UUID  `json:"clip_id"`
	OwnerID    uuid.UUID  `json:"user_id"`
	Status     ClipStatus `json:"status"`
	CommitTime time.Time  `json:"commit_timestamp"`
}

// EventFor builds a change event describing clip.
func EventFor(t ChangeType, clip Clip) ChangeEvent {
	return ChangeEvent{
		Type:       t,
		ClipID:     clip.ID,
		OwnerID:    clip.OwnerID,
		Status:     clip.Status,
		CommitTime: clip.UpdatedAt,
	}
}
