// Package download fetches finished clip artifacts for local persistence.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"clipmaster/models"
)

var (
	// ErrClipNotReady is returned for any clip whose status is not completed.
	ErrClipNotReady = errors.New("clip not ready")
	// ErrDownloadFailed wraps network and remote errors. Nothing is retried.
	ErrDownloadFailed = errors.New("download failed")
)

// DefaultTimeout bounds connection setup and response headers, not the body.
const DefaultTimeout = 30 * time.Second

// Artifact is an open artifact stream. The caller must close it.
type Artifact struct {
	io.ReadCloser
	Size        int64 // -1 if unknown
	ContentType string
	FileName    string
}

// Retriever downloads clip artifacts over HTTP.
type Retriever struct {
	client *http.Client
	log    *logrus.Entry
}

// NewRetriever uses client, or a client with DefaultTimeout header timeouts
// when nil.
func NewRetriever(client *http.Client, logger *logrus.Logger) *Retriever {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: DefaultTimeout,
		}}
	}
	return &Retriever{client: client, log: logger.WithField("component", "download")}
}

// Download opens the artifact of a completed clip. Clips in any other status
// fail with ErrClipNotReady before any request is made.
func (r *Retriever) Download(ctx context.Context, clip *models.Clip) (*Artifact, error) {
	if clip == nil || !clip.Downloadable() {
		status := models.ClipStatus("")
		if clip != nil {
			status = clip.Status
		}
		return nil, fmt.Errorf("%w: status is %q", ErrClipNotReady, status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clip.ArtifactURI, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.WithError(err).WithField("clip_id", clip.ID).Warn("Artifact fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		r.log.WithFields(logrus.Fields{"clip_id": clip.ID, "status": resp.StatusCode}).Warn("Artifact fetch rejected")
		return nil, fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, clip.ArtifactURI, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return &Artifact{
		ReadCloser:  resp.Body,
		Size:        resp.ContentLength,
		ContentType: contentType,
		FileName:    FileName(clip),
	}, nil
}

// FileName is the local file name for a clip: its title with path and
// reserved characters replaced, plus ".mp4".
func FileName(clip *models.Clip) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, clip.Title)
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		name = models.DefaultTitle
	}
	return name + ".mp4"
}
