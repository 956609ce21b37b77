package source

import (
	"path/filepath"
	"strings"

	"clipmaster/models"
)

// SuggestTitle derives a display title from a resolved submission.
//
// Uploaded files use the file name without its last extension. Remote links
// fall back from the last non-empty path segment, to the host, to
// models.DefaultTitle, so the result is never empty.
func SuggestTitle(r *Resolved) string {
	if r == nil {
		return models.DefaultTitle
	}

	switch r.Kind {
	case models.SourceUploadedFile:
		if r.File != nil {
			name := filepath.Base(r.File.Name)
			if title := strings.TrimSuffix(name, filepath.Ext(name)); title != "" && title != "." {
				return title
			}
		}
	case models.SourceRemoteURL:
		if r.URL != nil {
			if seg := lastPathSegment(r.URL.Path); seg != "" {
				return seg
			}
			if host := r.URL.Hostname(); host != "" {
				return host
			}
		}
	}
	return models.DefaultTitle
}

func lastPathSegment(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}
