// Package realtime delivers clip change notifications to connected observers.
// Events are hints: an observer that sees one re-lists its clips. Delivery is
// at-least-once per connected subscriber and nothing is replayed.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clipmaster/models"
)

const (
	// DefaultBuffer is the per-subscriber event buffer.
	DefaultBuffer = 32
	recentWindow  = 1024
)

// Hub fans change events out to subscribers filtered by owner.
type Hub struct {
	buffer int

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	recentMu  sync.Mutex
	recent    map[string]struct{}
	recentLog []string

	log *logrus.Entry
}

// NewHub creates a Hub giving each subscriber buffer pending events.
func NewHub(buffer int, logger *logrus.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[uint64]*Subscription),
		recent: make(map[string]struct{}, recentWindow),
		log:    logger.WithField("component", "realtime.hub"),
	}
}

// Subscription receives the events of one owner until closed or until the
// context passed to Subscribe is done.
type Subscription struct {
	id      uint64
	owner   uuid.UUID
	ch      chan models.ChangeEvent
	done    chan struct{}
	hub     *Hub
	once    sync.Once
	dropped atomic.Int64
}

// Subscribe registers an observer for owner's clip changes.
func (h *Hub) Subscribe(ctx context.Context, owner uuid.UUID) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscription{
		id:    h.nextID,
		owner: owner,
		ch:    make(chan models.ChangeEvent, h.buffer),
		done:  make(chan struct{}),
		hub:   h,
	}
	if h.closed {
		s.closeLocked()
		return s
	}
	h.subs[s.id] = s

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	h.log.WithFields(logrus.Fields{"user_id": owner, "subscribers": len(h.subs)}).Debug("Subscriber added")
	return s
}

// Publish delivers ev to every subscriber of its owner without blocking.
// A subscriber with a full buffer misses the event. It reports false when the
// same change was already published.
func (h *Hub) Publish(ev models.ChangeEvent) bool {
	if !h.remember(ev) {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		if s.owner != ev.OwnerID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped.Add(1)
			h.log.WithFields(logrus.Fields{"user_id": s.owner, "clip_id": ev.ClipID}).Warn("Subscriber buffer full, event dropped")
		}
	}
	return true
}

// SubscriberCount reports the number of open subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, s := range h.subs {
		s.closeLocked()
	}
}

// remember records ev and reports whether it was new. Only the most recent
// changes are kept.
func (h *Hub) remember(ev models.ChangeEvent) bool {
	key := fmt.Sprintf("%s/%d/%s", ev.ClipID, ev.CommitTime.UnixNano(), ev.Status)

	h.recentMu.Lock()
	defer h.recentMu.Unlock()

	if _, seen := h.recent[key]; seen {
		return false
	}
	h.recent[key] = struct{}{}
	h.recentLog = append(h.recentLog, key)
	if len(h.recentLog) > recentWindow {
		delete(h.recent, h.recentLog[0])
		h.recentLog = h.recentLog[1:]
	}
	return true
}

// Events returns the channel of change events. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan models.ChangeEvent {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped counts events missed because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		delete(s.hub.subs, s.id)
		close(s.done)
		close(s.ch)
	})
}
