package models

import "fmt"

// ClipStatus is the lifecycle state of a clip.
//
//	processing -> completed
//	processing -> failed
//
// completed and failed are terminal.
type ClipStatus string

const (
	StatusProcessing ClipStatus = "processing"
	StatusCompleted  ClipStatus = "completed"
	StatusFailed     ClipStatus = "failed"
)

// ParseClipStatus validates a raw status string read from storage or a request.
func ParseClipStatus(raw string) (ClipStatus, error) {
	switch s := ClipStatus(raw); s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown clip status %q", raw)
	}
}

// IsTerminal reports whether the status can no longer change.
func (s ClipStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s ClipStatus) CanTransitionTo(next ClipStatus) bool {
	return s == StatusProcessing && next.IsTerminal()
}
