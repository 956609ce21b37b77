package objectstore

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Progress counts transferred bytes. It is advisory UI feedback only; the
// upload result is the only correctness signal.
type Progress struct {
	total  int64
	sent   atomic.Int64
	state  atomic.Int32
	doneAt atomic.Int64
}

const (
	stateRunning int32 = iota
	stateDone
	stateFailed
)

// NewProgress tracks a transfer of total bytes (0 if unknown).
func NewProgress(total int64) *Progress {
	return &Progress{total: total}
}

// Reader wraps r so every read advances the counter.
func (p *Progress) Reader(r io.Reader) io.Reader {
	return &progressReader{r: r, p: p}
}

// Finish records the transfer outcome.
func (p *Progress) Finish(err error) {
	if err != nil {
		p.state.Store(stateFailed)
	} else {
		p.state.Store(stateDone)
	}
	p.doneAt.Store(time.Now().UnixNano())
}

// ProgressSnapshot is a point-in-time view of a transfer.
type ProgressSnapshot struct {
	Sent    int64   `json:"sent_bytes"`
	Total   int64   `json:"total_bytes"`
	Percent float64 `json:"percent"`
	Done    bool    `json:"done"`
	Failed  bool    `json:"failed"`
}

// Snapshot reads the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	s := ProgressSnapshot{
		Sent:   p.sent.Load(),
		Total:  p.total,
		Done:   p.state.Load() == stateDone,
		Failed: p.state.Load() == stateFailed,
	}
	switch {
	case s.Done:
		s.Percent = 100
	case s.Total > 0:
		s.Percent = float64(s.Sent) * 100 / float64(s.Total)
		if s.Percent > 99 {
			s.Percent = 99
		}
	}
	return s
}

type progressReader struct {
	r io.Reader
	p *Progress
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.p.sent.Add(int64(n))
	}
	return n, err
}

// Tracker indexes in-flight transfers by a client-chosen upload id so a
// second request can poll them. Finished entries are kept for Retention.
type Tracker struct {
	Retention time.Duration

	mu      sync.Mutex
	entries map[string]*Progress
}

// NewTracker returns a Tracker keeping finished transfers for retention.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{Retention: retention, entries: make(map[string]*Progress)}
}

// Start registers a transfer. An empty id returns an untracked Progress.
func (t *Tracker) Start(owner uuid.UUID, id string, total int64) *Progress {
	p := NewProgress(total)
	if id == "" {
		return p
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(time.Now())
	t.entries[trackerKey(owner, id)] = p
	return p
}

// Get returns the owner's transfer registered under id.
func (t *Tracker) Get(owner uuid.UUID, id string) (ProgressSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[trackerKey(owner, id)]
	if !ok {
		return ProgressSnapshot{}, false
	}
	return p.Snapshot(), true
}

func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.Retention).UnixNano()
	for k, p := range t.entries {
		if p.state.Load() != stateRunning && p.doneAt.Load() < cutoff {
			delete(t.entries, k)
		}
	}
}

func trackerKey(owner uuid.UUID, id string) string {
	return owner.String() + "/" + id
}
