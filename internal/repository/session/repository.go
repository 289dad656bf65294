// Package session defines the contract of the in-memory authoritative
// store for active rooms. All state a live room needs between commands
// lives here; the durable store is only consulted for cold lookups and
// audit history.
package session

import (
	"errors"
	"time"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrConnNotFound        = errors.New("connection not found")
)

type Room struct {
	Code         string
	Name         string
	CreatedBy    string
	VideoURL     string
	VideoTitle   string
	IsPlaying    bool
	CurrentTime  float64
	IsActive     bool
	CreatedAt    time.Time
	LastActivity time.Time
}

type Participant struct {
	Id       string
	RoomCode string
	Username string
	ConnId   string
	IsAdmin  bool
	JoinedAt time.Time
	// JoinSeq is assigned by the store under the room lock, so it is a
	// total order even for joins that arrive in the same instant.
	JoinSeq int64
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

type UpsertParticipantParams struct {
	Id       string
	RoomCode string
	Username string
	ConnId   string
	IsAdmin  bool
}

type UpdatePlaybackParams struct {
	RoomCode    string
	IsPlaying   bool
	CurrentTime float64
}

type SetVideoParams struct {
	RoomCode   string
	VideoURL   string
	VideoTitle string
}
