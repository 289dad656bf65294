package room

// View models carried inside websocket payloads and REST responses.
// Field names follow the wire convention of camelCase keys.

type Participant struct {
	Id       string `json:"id"`
	Username string `json:"userName"`
	IsAdmin  bool   `json:"isAdmin"`
	JoinedAt int64  `json:"joinedAt"`
}

type Room struct {
	RoomCode        string  `json:"roomCode"`
	Name            string  `json:"name"`
	CreatedBy       string  `json:"createdBy"`
	CurrentVideoURL *string `json:"currentVideoUrl"`
	VideoTitle      string  `json:"videoTitle,omitempty"`
	VideoState      string  `json:"videoState"`
	CurrentTime     float64 `json:"currentTime"`
	CreatedAt       int64   `json:"createdAt"`
}

type RoomSnapshot struct {
	Room         Room          `json:"room"`
	Participants []Participant `json:"participants"`
}

type HistoryRecord struct {
	VideoURL   string `json:"videoUrl"`
	VideoTitle string `json:"videoTitle"`
	AddedBy    string `json:"addedBy"`
	AddedAt    int64  `json:"addedAt"`
}

// Outbound websocket message types.
const (
	MsgRoomUpdate   = "room-update"
	MsgUserJoined   = "user-joined"
	MsgUserLeft     = "user-left"
	MsgUserKicked   = "user-kicked"
	MsgVideoPlay    = "video-play"
	MsgVideoPause   = "video-pause"
	MsgVideoSeek    = "video-seek"
	MsgVideoChanged = "video-changed"
	MsgChatMessage  = "chat-message"
	MsgSyncState    = "sync-state"
)

const (
	videoStatePlaying = "playing"
	videoStatePaused  = "paused"
)

func stateOf(isPlaying bool) string {
	if isPlaying {
		return videoStatePlaying
	}

	return videoStatePaused
}
