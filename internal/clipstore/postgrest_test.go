package clipstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmaster/models"
)

// fakeRest answers the subset of the PostgREST protocol the repository uses:
// eq./gt. filters on GET and PATCH, single-object POST.
type fakeRest struct {
	mu       sync.Mutex
	rows     []map[string]interface{}
	failWith int
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.HasSuffix(r.URL.Path, "/rest/v1/clips") {
		http.NotFound(w, r)
		return
	}
	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
		return
	}

	q := r.URL.Query()
	var out []map[string]interface{}
	switch r.Method {
	case http.MethodGet:
		for _, row := range f.rows {
			if rowMatches(row, q) {
				out = append(out, row)
			}
		}
	case http.MethodPost:
		var row map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, row)
		out = append(out, row)
	case http.MethodPatch:
		var patch map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, row := range f.rows {
			if rowMatches(row, q) {
				for k, v := range patch {
					row[k] = v
				}
				out = append(out, row)
			}
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if out == nil {
		out = []map[string]interface{}{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func rowMatches(row map[string]interface{}, q url.Values) bool {
	for key, vals := range q {
		switch key {
		case "select", "order", "limit", "offset":
			continue
		}
		op, operand, _ := strings.Cut(vals[0], ".")
		field := fmt.Sprint(row[key])
		switch op {
		case "eq":
			if field != operand {
				return false
			}
		case "gt":
			a, errA := time.Parse(time.RFC3339Nano, field)
			b, errB := time.Parse(time.RFC3339Nano, operand)
			if errA != nil || errB != nil || !a.After(b) {
				return false
			}
		}
	}
	return true
}

func newPostgrestRepo(t *testing.T) (*PostgrestRepository, *fakeRest) {
	t.Helper()
	fake := &fakeRest{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewPostgrestClient(srv.URL, "service-key")
	require.NoError(t, err)
	return NewPostgrestRepository(client, "", quietLogger()), fake
}

func TestPostgrestRepositoryCreateGetList(t *testing.T) {
	repo, _ := newPostgrestRepo(t)
	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	older := models.NewClip(owner, models.SourceUploadedFile, "https://cdn/a.mp4", "a", nil, base)
	newer := models.NewClip(owner, models.SourceRemoteURL, "https://vimeo.com/1", "1", strPtr("Imported from vimeo.com"), base.Add(time.Minute))
	for _, c := range []models.Clip{older, newer} {
		id, err := repo.Create(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, c.ID, id)
	}

	got, err := repo.Get(ctx, owner, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, models.SourceRemoteURL, got.SourceKind)
	require.NotNil(t, got.Caption)
	assert.Equal(t, "Imported from vimeo.com", *got.Caption)

	_, err = repo.Get(ctx, uuid.New(), newer.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	clips, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, newer.ID, clips[0].ID)
	assert.Equal(t, older.ID, clips[1].ID)

	empty, err := repo.ListByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestPostgrestRepositoryFinalize(t *testing.T) {
	repo, _ := newPostgrestRepo(t)
	ctx := context.Background()
	owner := uuid.New()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	clip := models.NewClip(owner, models.SourceUploadedFile, "https://cdn/raw.mp4", "raw", nil, now)
	_, err := repo.Create(ctx, clip)
	require.NoError(t, err)

	failed, err := repo.Finalize(ctx, clip.ID, models.Finalization{Status: models.StatusFailed, FailureReason: "transcode error"}, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "transcode error", *failed.FailureReason)
	assert.Equal(t, "https://cdn/raw.mp4", failed.ArtifactURI)

	_, err = repo.Finalize(ctx, clip.ID, models.Finalization{Status: models.StatusCompleted, ArtifactURI: "https://cdn/x.mp4"}, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrClipFinalized)

	_, err = repo.Finalize(ctx, uuid.New(), models.Finalization{Status: models.StatusFailed}, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgrestRepositoryChangedSince(t *testing.T) {
	repo, _ := newPostgrestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	clip := models.NewClip(uuid.New(), models.SourceUploadedFile, "https://cdn/a.mp4", "a", nil, base)
	_, err := repo.Create(ctx, clip)
	require.NoError(t, err)

	changed, err := repo.ChangedSince(ctx, base.Add(-time.Second), 50)
	require.NoError(t, err)
	require.Len(t, changed, 1)

	changed, err = repo.ChangedSince(ctx, base, 50)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestPostgrestRepositoryServerError(t *testing.T) {
	repo, fake := newPostgrestRepo(t)
	fake.failWith = http.StatusInternalServerError

	_, err := repo.Create(context.Background(), models.NewClip(uuid.New(), models.SourceUploadedFile, "https://cdn/a.mp4", "a", nil, time.Now()))
	assert.Error(t, err)

	_, err = repo.ListByOwner(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestSortNewestFirstBreaksTiesByID(t *testing.T) {
	at := time.Now()
	a := models.Clip{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), CreatedAt: at}
	b := models.Clip{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), CreatedAt: at}
	c := models.Clip{ID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), CreatedAt: at.Add(-time.Second)}

	clips := []models.Clip{c, a, b}
	SortNewestFirst(clips)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID, c.ID}, []uuid.UUID{clips[0].ID, clips[1].ID, clips[2].ID})
}
