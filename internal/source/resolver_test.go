package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipmaster/models"
)

func TestResolveFile(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr error
		title   string
		ext     string
	}{
		{name: "mp4", file: "game_highlight.mp4", size: 10 << 20, title: "game_highlight", ext: "mp4"},
		{name: "upper case ext", file: "Stream.MKV", size: 1, title: "Stream", ext: "mkv"},
		{name: "dots in name", file: "my.best.play.mov", size: 1, title: "my.best.play", ext: "mov"},
		{name: "exactly at limit", file: "a.avi", size: MaxFileSize, title: "a", ext: "avi"},
		{name: "over limit", file: "big.mp4", size: MaxFileSize + 1, wantErr: ErrFileTooLarge},
		{name: "bad ext", file: "notes.txt", size: 1, wantErr: ErrUnsupportedExtension},
		{name: "no ext", file: "video", size: 1, wantErr: ErrUnsupportedExtension},
		{name: "only ext", file: ".mp4", size: 1, title: models.DefaultTitle, ext: "mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(FileInput(tt.file, tt.size, "video/mp4", strings.NewReader("x")))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.SourceUploadedFile, res.Kind)
			assert.Equal(t, tt.ext, res.Extension)
			assert.Nil(t, res.Caption)
			assert.Equal(t, tt.title, SuggestTitle(res))
		})
	}
}

func TestResolveURL(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name    string
		raw     string
		wantErr error
		title   string
		caption string
	}{
		{name: "youtube watch", raw: "https://youtube.com/watch?v=abc123", title: "watch", caption: "Imported from youtube.com"},
		{name: "short link", raw: "https://youtu.be/dQw4w9WgXcQ", title: "dQw4w9WgXcQ", caption: "Imported from youtu.be"},
		{name: "subdomain", raw: "https://www.twitch.tv/videos/123/", title: "123", caption: "Imported from www.twitch.tv"},
		{name: "host fallback", raw: "https://kick.com", title: "kick.com", caption: "Imported from kick.com"},
		{name: "mixed case host", raw: "https://VIMEO.com/76979871", title: "76979871", caption: "Imported from vimeo.com"},
		{name: "mixed case host fallback", raw: "https://WWW.YouTube.com/", title: "www.youtube.com", caption: "Imported from www.youtube.com"},
		{name: "surrounding space", raw: "  https://tiktok.com/@user/video/1  ", title: "1", caption: "Imported from tiktok.com"},
		{name: "unsupported", raw: "https://example.com/video", wantErr: ErrUnsupportedPlatform},
		{name: "platform only in path", raw: "https://evil.test/youtube.com", wantErr: ErrUnsupportedPlatform},
		{name: "no scheme", raw: "youtube.com/watch?v=1", wantErr: ErrMalformedURL},
		{name: "not a url", raw: "::::", wantErr: ErrMalformedURL},
		{name: "ftp", raw: "ftp://youtube.com/file", wantErr: ErrMalformedURL},
		{name: "empty", raw: "   ", wantErr: ErrMalformedURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(URLInput(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.SourceRemoteURL, res.Kind)
			require.NotNil(t, res.Caption)
			assert.Equal(t, tt.caption, *res.Caption)
			assert.Equal(t, strings.TrimPrefix(tt.caption, "Imported from "), res.Host())
			assert.Equal(t, tt.title, SuggestTitle(res))
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver()
	a, err := r.Resolve(URLInput("https://dailymotion.com/video/x8abc"))
	require.NoError(t, err)
	b, err := r.Resolve(URLInput("https://dailymotion.com/video/x8abc"))
	require.NoError(t, err)

	assert.Equal(t, a.URL.String(), b.URL.String())
	assert.Equal(t, *a.Caption, *b.Caption)
	assert.Equal(t, SuggestTitle(a), SuggestTitle(b))
}

func TestSuggestTitleFallbacks(t *testing.T) {
	assert.Equal(t, models.DefaultTitle, SuggestTitle(nil))
	assert.Equal(t, models.DefaultTitle, SuggestTitle(&Resolved{Kind: models.SourceRemoteURL}))
	assert.Equal(t, "x", lastPathSegment("/a//x//"))
	assert.Equal(t, "", lastPathSegment("/"))
}
