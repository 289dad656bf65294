package videometa

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Best-effort metadata lookup for YouTube videos, used to fill in a
// title when the client does not supply one.

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func Get(videoId string) (*VideoData, error) {
	videoData, err := getVideoWithEmbed(videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = getFromPage(videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}
