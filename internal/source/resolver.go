// Package source validates raw submissions and classifies them as uploaded
// files or remote platform links before anything touches storage.
package source

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"clipmaster/models"
)

// MaxFileSize is the upload ceiling, checked before any transfer starts.
const MaxFileSize int64 = 500 << 20

// Rejection reasons. All are caller-input errors raised before any mutation.
var (
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrMalformedURL         = errors.New("malformed url")
	ErrUnsupportedPlatform  = errors.New("unsupported platform")
)

// AllowedExtensions lists the accepted upload containers, without the dot.
var AllowedExtensions = []string{"mp4", "mov", "avi", "mkv"}

// SupportedPlatforms is matched as a case-insensitive substring of the URL host.
var SupportedPlatforms = []string{
	"youtube.com",
	"youtu.be",
	"twitch.tv",
	"kick.com",
	"vimeo.com",
	"dailymotion.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
}

// File is an uploaded blob as received from the client.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Input is one submission: exactly one of File or URL is set.
type Input struct {
	File *File
	URL  string
}

// FileInput wraps an uploaded blob.
func FileInput(name string, size int64, contentType string, body io.Reader) Input {
	return Input{File: &File{Name: name, Size: size, ContentType: contentType, Body: body}}
}

// URLInput wraps a pasted link.
func URLInput(raw string) Input {
	return Input{URL: raw}
}

// Resolved is a validated submission ready for ingestion.
type Resolved struct {
	Kind      models.SourceKind
	File      *File    // set for uploaded files
	URL       *url.URL // set for remote links
	Extension string   // lower-case, no dot; uploaded files only
	Caption   *string
}

// Host returns the remote link's host without port, or "" for uploads.
func (r *Resolved) Host() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}

// Resolver classifies submissions. The zero value is ready to use.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve validates in and derives its kind and caption. It has no side effects.
func (r *Resolver) Resolve(in Input) (*Resolved, error) {
	switch {
	case in.File != nil:
		return resolveFile(in.File)
	case strings.TrimSpace(in.URL) != "":
		return resolveURL(in.URL)
	default:
		return nil, fmt.Errorf("%w: empty submission", ErrMalformedURL)
	}
}

func resolveFile(f *File) (*Resolved, error) {
	if f.Size > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, f.Name, f.Size, MaxFileSize)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
	if !allowedExtension(ext) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedExtension, ext, strings.Join(AllowedExtensions, ", "))
	}

	return &Resolved{
		Kind:      models.SourceUploadedFile,
		File:      f,
		Extension: ext,
	}, nil
}

func resolveURL(raw string) (*Resolved, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrMalformedURL, raw)
	}
	u.Host = strings.ToLower(u.Host)
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrMalformedURL, raw)
	}

	if !supportedHost(host) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
	}

	caption := "Imported from " + host
	return &Resolved{
		Kind:    models.SourceRemoteURL,
		URL:     u,
		Caption: &caption,
	}, nil
}

func allowedExtension(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func supportedHost(host string) bool {
	host = strings.ToLower(host)
	for _, platform := range SupportedPlatforms {
		if strings.Contains(host, platform) {
			return true
		}
	}
	return false
}
