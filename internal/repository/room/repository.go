// Package room defines the contract of the durable room store. It
// backs the in-memory session table: rooms are written through on
// creation and on playback snapshots, read back on cold lookups, and
// swept when idle.
package room

import (
	"errors"
	"time"
)

var ErrRoomNotFound = errors.New("room not found")

type Room struct {
	Code         string  `redis:"code"`
	Name         string  `redis:"name"`
	CreatedBy    string  `redis:"created_by"`
	VideoURL     string  `redis:"video_url"`
	VideoTitle   string  `redis:"video_title"`
	IsPlaying    bool    `redis:"is_playing"`
	CurrentTime  float64 `redis:"current_time"`
	IsActive     bool    `redis:"is_active"`
	CreatedAt    int64   `redis:"created_at"`
	LastActivity int64   `redis:"last_activity"`
}

type HistoryRecord struct {
	VideoURL   string `json:"videoUrl"`
	VideoTitle string `json:"videoTitle"`
	AddedBy    string `json:"addedBy"`
	AddedAt    int64  `json:"addedAt"`
}

type SetRoomParams struct {
	Code         string
	Name         string
	CreatedBy    string
	VideoURL     string
	VideoTitle   string
	IsPlaying    bool
	CurrentTime  float64
	CreatedAt    time.Time
	LastActivity time.Time
}

type UpdatePlaybackParams struct {
	Code         string
	IsPlaying    bool
	CurrentTime  float64
	LastActivity time.Time
}

type SetVideoParams struct {
	Code         string
	VideoURL     string
	VideoTitle   string
	LastActivity time.Time
}

type AppendHistoryParams struct {
	Code       string
	VideoURL   string
	VideoTitle string
	AddedBy    string
	AddedAt    time.Time
}
