package videourl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform Platform
		id       string
		canonical string
	}{
		{
			name:      "youtube watch url",
			url:       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			platform:  PlatformYouTube,
			id:        "dQw4w9WgXcQ",
			canonical: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:      "youtube short url",
			url:       "https://youtu.be/dQw4w9WgXcQ",
			platform:  PlatformYouTube,
			id:        "dQw4w9WgXcQ",
			canonical: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:      "youtube embed url",
			url:       "https://www.youtube.com/embed/dQw4w9WgXcQ",
			platform:  PlatformYouTube,
			id:        "dQw4w9WgXcQ",
			canonical: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:      "vimeo url",
			url:       "https://vimeo.com/76979871",
			platform:  PlatformVimeo,
			id:        "76979871",
			canonical: "https://vimeo.com/76979871",
		},
		{
			name:      "vimeo player url",
			url:       "https://player.vimeo.com/video/76979871",
			platform:  PlatformVimeo,
			id:        "76979871",
			canonical: "https://vimeo.com/76979871",
		},
		{
			name:      "direct mp4",
			url:       "https://cdn.example.com/movie.mp4",
			platform:  PlatformDirect,
			id:        "https://cdn.example.com/movie.mp4",
			canonical: "https://cdn.example.com/movie.mp4",
		},
		{
			name:      "direct webm with query",
			url:       "https://cdn.example.com/movie.webm?token=abc",
			platform:  PlatformDirect,
			id:        "https://cdn.example.com/movie.webm?token=abc",
			canonical: "https://cdn.example.com/movie.webm?token=abc",
		},
		{
			name:      "url with surrounding whitespace",
			url:       "  https://youtu.be/dQw4w9WgXcQ  ",
			platform:  PlatformYouTube,
			id:        "dQw4w9WgXcQ",
			canonical: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video, err := Classify(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, video.Platform)
			assert.Equal(t, tt.id, video.Id)
			assert.Equal(t, tt.canonical, video.URL)
			assert.NotEmpty(t, video.EmbedURL)
		})
	}
}

func TestClassifyUnsupported(t *testing.T) {
	urls := []string{
		"",
		"not a url",
		"https://example.com/page.html",
		"https://www.youtube.com/watch?v=tooshort",
		"ftp-garbage",
	}

	for _, u := range urls {
		_, err := Classify(u)
		assert.ErrorIs(t, err, ErrUnsupportedURL, "url %q", u)
		assert.False(t, IsValid(u))
	}
}
