package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmaster/internal/download"
)

type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func artifact(name string, r io.Reader) *download.Artifact {
	return &download.Artifact{ReadCloser: io.NopCloser(r), Size: -1, FileName: name}
}

func TestSaveArtifact(t *testing.T) {
	dir := t.TempDir()

	path, err := saveArtifact(dir, artifact("game_highlight.mp4", strings.NewReader("final-bytes")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "game_highlight.mp4"), path)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "final-bytes", string(raw))

	_, err = saveArtifact(dir, artifact("game_highlight.mp4", strings.NewReader("other")))
	assert.ErrorContains(t, err, "already exists")
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "final-bytes", string(raw), "existing file kept")
}

func TestSaveArtifactRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()

	_, err := saveArtifact(dir, artifact("broken.mp4", &failingReader{}))
	require.ErrorIs(t, err, download.ErrDownloadFailed)

	_, statErr := os.Stat(filepath.Join(dir, "broken.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}
