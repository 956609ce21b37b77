package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmaster/internal/clipstore"
	"clipmaster/internal/dispatch"
	"clipmaster/internal/objectstore"
	"clipmaster/internal/source"
	"clipmaster/models"
)

type fakeStore struct {
	mu      sync.Mutex
	keys    *objectstore.KeyClock
	uploads []objectstore.Object
	bytes   int
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: objectstore.NewKeyClock()}
}

func (f *fakeStore) Upload(_ context.Context, obj objectstore.Object) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	body := obj.Body
	if obj.Progress != nil {
		body = obj.Progress.Reader(obj.Body)
	}
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, obj)
	f.bytes += int(n)
	return "https://cdn.example/" + f.keys.Key(obj.OwnerID, obj.Extension), nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type failingRepo struct {
	clipstore.Repository
}

func (failingRepo) Create(context.Context, models.Clip) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection refused")
}

type recordingAnnouncer struct {
	mu   sync.Mutex
	msgs []dispatch.Announcement
	err  error
}

func (r *recordingAnnouncer) Announce(_ context.Context, a dispatch.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, a)
	return r.err
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRepo(t *testing.T) *clipstore.SQLRepository {
	t.Helper()
	repo, err := clipstore.OpenSQL(clipstore.DialectSQLite, ":memory:", "", testLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(context.Background()))
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func rowCount(t *testing.T, repo clipstore.Repository, owner uuid.UUID) int {
	t.Helper()
	clips, err := repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	return len(clips)
}

func TestIngestUploadedFile(t *testing.T) {
	store := newFakeStore()
	repo := newRepo(t)
	tracker := objectstore.NewTracker(time.Minute)
	c := NewCoordinator(store, repo, testLogger(), WithTracker(tracker))
	owner := uuid.New()

	const size = 10 << 20
	start := time.Now().UTC()
	id, err := c.Ingest(context.Background(), owner,
		source.FileInput("game_highlight.mp4", size, "video/mp4", bytes.NewReader(make([]byte, size))),
		WithUploadID("u-1"))
	require.NoError(t, err)

	clip, err := repo.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, "game_highlight", clip.Title)
	assert.Equal(t, models.SourceUploadedFile, clip.SourceKind)
	assert.Equal(t, models.StatusProcessing, clip.Status)
	assert.True(t, strings.HasPrefix(clip.ArtifactURI, "https://cdn.example/"+owner.String()+"/"))
	assert.True(t, strings.HasSuffix(clip.ArtifactURI, ".mp4"))
	assert.Equal(t, clip.ArtifactURI, clip.OriginalSourceURI)
	assert.Nil(t, clip.Caption)
	assert.False(t, clip.CreatedAt.Before(start.Truncate(time.Microsecond)))

	assert.Equal(t, size, store.bytes)
	snap, ok := tracker.Get(owner, "u-1")
	require.True(t, ok)
	assert.True(t, snap.Done)
	assert.Equal(t, int64(size), snap.Sent)
}

func TestIngestRemoteURL(t *testing.T) {
	store := newFakeStore()
	repo := newRepo(t)
	ann := &recordingAnnouncer{}
	c := NewCoordinator(store, repo, testLogger(), WithAnnouncer(ann))
	owner := uuid.New()

	id, err := c.Ingest(context.Background(), owner, source.URLInput("https://youtube.com/watch?v=abc123"))
	require.NoError(t, err)

	clip, err := repo.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, "watch", clip.Title)
	require.NotNil(t, clip.Caption)
	assert.Equal(t, "Imported from youtube.com", *clip.Caption)
	assert.Equal(t, models.StatusProcessing, clip.Status)
	assert.Equal(t, models.SourceRemoteURL, clip.SourceKind)
	assert.Equal(t, "https://youtube.com/watch?v=abc123", clip.ArtifactURI)
	assert.Equal(t, 0, store.count(), "remote sources are not transferred")

	require.Len(t, ann.msgs, 1)
	assert.Equal(t, id, ann.msgs[0].ClipID)
	assert.Equal(t, "https://youtube.com/watch?v=abc123", ann.msgs[0].SourceURI)
}

func TestIngestRejectionsCreateNothing(t *testing.T) {
	tests := []struct {
		name string
		in   source.Input
		want error
	}{
		{"too large", source.FileInput("big.mp4", source.MaxFileSize+1, "", strings.NewReader("x")), source.ErrFileTooLarge},
		{"bad extension", source.FileInput("clip.webm", 10, "", strings.NewReader("x")), source.ErrUnsupportedExtension},
		{"unsupported platform", source.URLInput("https://example.com/video"), source.ErrUnsupportedPlatform},
		{"malformed", source.URLInput("not a url"), source.ErrMalformedURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			repo := newRepo(t)
			ann := &recordingAnnouncer{}
			c := NewCoordinator(store, repo, testLogger(), WithAnnouncer(ann))
			owner := uuid.New()

			id, err := c.Ingest(context.Background(), owner, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, uuid.Nil, id)
			assert.Equal(t, 0, rowCount(t, repo, owner))
			assert.Equal(t, 0, store.count())
			assert.Empty(t, ann.msgs)
		})
	}
}

func TestIngestUploadFailureLeavesNoRecord(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("network unreachable")
	repo := newRepo(t)
	tracker := objectstore.NewTracker(time.Minute)
	c := NewCoordinator(store, repo, testLogger(), WithTracker(tracker))
	owner := uuid.New()

	_, err := c.Ingest(context.Background(), owner, source.FileInput("a.mov", 3, "", strings.NewReader("abc")), WithUploadID("u-2"))
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorContains(t, err, "network unreachable")
	assert.Equal(t, 0, rowCount(t, repo, owner))

	snap, ok := tracker.Get(owner, "u-2")
	require.True(t, ok)
	assert.True(t, snap.Failed)
}

func TestIngestRepositoryFailure(t *testing.T) {
	c := NewCoordinator(newFakeStore(), failingRepo{}, testLogger())

	_, err := c.Ingest(context.Background(), uuid.New(), source.URLInput("https://vimeo.com/12345"))
	assert.ErrorIs(t, err, ErrRepositoryWriteFailed)
	assert.ErrorContains(t, err, "connection refused")
}

func TestIngestAnnouncerFailureDoesNotFailIngest(t *testing.T) {
	repo := newRepo(t)
	ann := &recordingAnnouncer{err: errors.New("queue down")}
	c := NewCoordinator(newFakeStore(), repo, testLogger(), WithAnnouncer(ann))
	owner := uuid.New()

	id, err := c.Ingest(context.Background(), owner, source.URLInput("https://www.twitch.tv/videos/1"))
	require.NoError(t, err)
	_, err = repo.Get(context.Background(), owner, id)
	assert.NoError(t, err)
}

func TestIngestUsesClock(t *testing.T) {
	repo := newRepo(t)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewCoordinator(newFakeStore(), repo, testLogger(), WithClock(func() time.Time { return fixed }))
	owner := uuid.New()

	id, err := c.Ingest(context.Background(), owner, source.URLInput("https://kick.com/streamer"))
	require.NoError(t, err)
	clip, err := repo.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(clip.CreatedAt))
}

func TestConcurrentIdenticalIngestsYieldDistinctClips(t *testing.T) {
	store := newFakeStore()
	repo := newRepo(t)
	c := NewCoordinator(store, repo, testLogger())
	owner := uuid.New()

	const n = 8
	ids := make(chan uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := c.Ingest(context.Background(), owner, source.FileInput("same.mp4", 4, "", strings.NewReader("data")))
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uuid.UUID]bool{}
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, rowCount(t, repo, owner))

	uris := map[string]bool{}
	clips, err := repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	for _, c := range clips {
		uris[c.ArtifactURI] = true
	}
	assert.Len(t, uris, n, "object keys never collide")
}
