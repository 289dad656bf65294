package videourl

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Classify maps a user-supplied video URL to a platform and canonical
// form. It is a pure function with no knowledge of rooms or playback.

var ErrUnsupportedURL = errors.New("unsupported video url")

type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformVimeo   Platform = "vimeo"
	PlatformDirect  Platform = "direct"
)

type Video struct {
	Platform Platform `json:"type"`
	Id       string   `json:"id"`
	URL      string   `json:"url"`
	EmbedURL string   `json:"embedUrl"`
}

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
}

var vimeoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vimeo\.com/(\d+)`),
	regexp.MustCompile(`player\.vimeo\.com/video/(\d+)`),
}

var directVideoPattern = regexp.MustCompile(`(?i)\.(mp4|webm|ogg|mov|avi|mkv|flv)(\?.*)?$`)

func Classify(rawURL string) (Video, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Video{}, ErrUnsupportedURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Video{}, fmt.Errorf("%w: invalid url format", ErrUnsupportedURL)
	}

	if video, ok := classifyYouTube(rawURL); ok {
		return video, nil
	}

	if video, ok := classifyVimeo(rawURL); ok {
		return video, nil
	}

	if directVideoPattern.MatchString(rawURL) {
		return Video{
			Platform: PlatformDirect,
			Id:       rawURL,
			URL:      rawURL,
			EmbedURL: rawURL,
		}, nil
	}

	return Video{}, ErrUnsupportedURL
}

func classifyYouTube(rawURL string) (Video, bool) {
	for _, pattern := range youtubePatterns {
		if match := pattern.FindStringSubmatch(rawURL); match != nil {
			id := match[1]
			return Video{
				Platform: PlatformYouTube,
				Id:       id,
				URL:      "https://www.youtube.com/watch?v=" + id,
				EmbedURL: "https://www.youtube.com/embed/" + id,
			}, true
		}
	}

	return Video{}, false
}

func classifyVimeo(rawURL string) (Video, bool) {
	for _, pattern := range vimeoPatterns {
		if match := pattern.FindStringSubmatch(rawURL); match != nil {
			id := match[1]
			return Video{
				Platform: PlatformVimeo,
				Id:       id,
				URL:      "https://vimeo.com/" + id,
				EmbedURL: "https://player.vimeo.com/video/" + id,
			}, true
		}
	}

	return Video{}, false
}

func IsValid(rawURL string) bool {
	_, err := Classify(rawURL)
	return err == nil
}
