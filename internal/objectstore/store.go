// Package objectstore uploads submitted video files to durable storage and
// hands back a publicly resolvable URI.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUploadFailed wraps every transfer failure; the cause is attached.
var ErrUploadFailed = errors.New("upload failed")

// Object is one blob to store for an owner.
type Object struct {
	OwnerID     uuid.UUID
	Extension   string // without the dot
	ContentType string
	Size        int64
	Body        io.Reader
	Progress    *Progress // optional
}

// Store puts objects and returns their public URI.
type Store interface {
	Upload(ctx context.Context, obj Object) (string, error)
}

// ObjectKey builds the storage key "<owner>/<timestamp>.<ext>".
func ObjectKey(owner uuid.UUID, stamp int64, ext string) string {
	return fmt.Sprintf("%s/%d.%s", owner.String(), stamp, strings.TrimPrefix(ext, "."))
}

// KeyClock hands out strictly increasing millisecond stamps so two uploads in
// the same process never produce the same key.
type KeyClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewKeyClock returns a clock backed by time.Now.
func NewKeyClock() *KeyClock {
	return &KeyClock{now: time.Now}
}

// Next returns the current Unix millisecond, bumped past the previous value if needed.
func (k *KeyClock) Next() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()

	ms := k.now().UnixMilli()
	if ms <= k.last {
		ms = k.last + 1
	}
	k.last = ms
	return ms
}

// Key allocates a fresh key for owner.
func (k *KeyClock) Key(owner uuid.UUID, ext string) string {
	return ObjectKey(owner, k.Next(), ext)
}

func body(obj Object) io.Reader {
	if obj.Progress == nil {
		return obj.Body
	}
	return obj.Progress.Reader(obj.Body)
}

func contentType(obj Object) string {
	if obj.ContentType != "" {
		return obj.ContentType
	}
	switch strings.ToLower(obj.Extension) {
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
