package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncroom/server/internal/broadcast"
	connInmemory "github.com/syncroom/server/internal/repository/connection/inmemory"
	roomRedis "github.com/syncroom/server/internal/repository/room/redis"
	sessionInmemory "github.com/syncroom/server/internal/repository/session/inmemory"
	"github.com/syncroom/server/internal/service/room"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roomRepo := roomRedis.NewRepo(rc, 10)
	sessionRepo := sessionInmemory.NewRepo()
	connRepo := connInmemory.NewRepo()
	router := broadcast.NewRouter(logger)

	svc := room.NewService(sessionRepo, roomRepo, connRepo, router, room.Config{
		MembersLimit:    25,
		RoomIdleTimeout: 24 * time.Hour,
	}, logger)
	t.Cleanup(svc.Close)

	ctrl := NewController(svc, connRepo, logger)
	server := httptest.NewServer(ctrl.Mux())
	t.Cleanup(server.Close)

	return server
}

func createRoomREST(t *testing.T, server *httptest.Server) string {
	t.Helper()

	body := bytes.NewBufferString(`{"name":"movie night","createdBy":"alice"}`)
	resp, err := http.Post(server.URL+"/api/v1/rooms", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var envelope struct {
		Data struct {
			RoomCode string `json:"roomCode"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data.RoomCode, 8)

	return envelope.Data.RoomCode
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    msgType,
		"payload": payload,
	}))
}

// readUntil drains messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %q", msgType)
		if msg.Type == msgType {
			return msg.Payload
		}
	}
}

func joinWS(t *testing.T, conn *websocket.Conn, code, username string) json.RawMessage {
	t.Helper()

	send(t, conn, "join-room", map[string]any{
		"roomCode": code,
		"userName": username,
	})

	return readUntil(t, conn, "room-update")
}

func TestRESTEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code := createRoomREST(t, server)

	resp, err = http.Get(server.URL + "/api/v1/rooms/" + code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data struct {
			Room struct {
				Name       string `json:"name"`
				VideoState string `json:"videoState"`
			} `json:"room"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "movie night", envelope.Data.Room.Name)
	assert.Equal(t, "paused", envelope.Data.Room.VideoState)

	resp, err = http.Get(server.URL + "/api/v1/rooms/NOSUCH23")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/rooms/" + code + "/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/v1/rooms/" + code + "/history?limit=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// malformed create payload
	resp, err = http.Post(server.URL+"/api/v1/rooms", "application/json", bytes.NewBufferString(`{"name":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketSession(t *testing.T) {
	server := newTestServer(t)
	code := createRoomREST(t, server)

	alice := dialWS(t, server)
	snapshot := joinWS(t, alice, code, "alice")

	var snap struct {
		Participants []struct {
			Id      string `json:"id"`
			IsAdmin bool   `json:"isAdmin"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(snapshot, &snap))
	require.Len(t, snap.Participants, 1)
	assert.True(t, snap.Participants[0].IsAdmin)

	bob := dialWS(t, server)
	joinWS(t, bob, code, "bob")

	// alice hears the join
	joined := readUntil(t, alice, "user-joined")
	var joinedPayload struct {
		Participant struct {
			Username string `json:"userName"`
		} `json:"participant"`
	}
	require.NoError(t, json.Unmarshal(joined, &joinedPayload))
	assert.Equal(t, "bob", joinedPayload.Participant.Username)

	// admin plays, the other side receives it
	send(t, alice, "play-video", map[string]any{"currentTime": 12.5})
	play := readUntil(t, bob, "video-play")
	var playPayload struct {
		CurrentTime float64 `json:"currentTime"`
	}
	require.NoError(t, json.Unmarshal(play, &playPayload))
	assert.Equal(t, 12.5, playPayload.CurrentTime)

	// chat reaches everyone including the sender
	send(t, bob, "chat-message", map[string]any{"message": "hello"})
	readUntil(t, alice, "chat-message")
	readUntil(t, bob, "chat-message")

	// non-admin playback commands are rejected privately
	send(t, bob, "play-video", map[string]any{"currentTime": 0})
	errPayload := readUntil(t, bob, "error")
	var wsErr struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(errPayload, &wsErr))
	assert.Equal(t, "FORBIDDEN", wsErr.Code)

	// unknown message types are reported, the loop survives
	send(t, alice, "no-such-command", map[string]any{})
	errPayload = readUntil(t, alice, "error")
	require.NoError(t, json.Unmarshal(errPayload, &wsErr))
	assert.Equal(t, "UNKNOWN_MESSAGE_TYPE", wsErr.Code)

	// urls that map to no platform are rejected at the edge
	send(t, alice, "change-video", map[string]any{"videoUrl": "https://example.com/not-a-video"})
	errPayload = readUntil(t, alice, "error")
	require.NoError(t, json.Unmarshal(errPayload, &wsErr))
	assert.Equal(t, "UNSUPPORTED_VIDEO_URL", wsErr.Code)

	send(t, alice, "sync-request", map[string]any{"currentTime": 30.0})
	syncPayload := readUntil(t, alice, "sync-state")
	var sync struct {
		State        string  `json:"state"`
		CurrentTime  float64 `json:"currentTime"`
		ShouldReseek bool    `json:"shouldReseek"`
	}
	require.NoError(t, json.Unmarshal(syncPayload, &sync))
	assert.Equal(t, "playing", sync.State)
	assert.True(t, sync.ShouldReseek)
}

func TestWebsocketKick(t *testing.T) {
	server := newTestServer(t)
	code := createRoomREST(t, server)

	alice := dialWS(t, server)
	joinWS(t, alice, code, "alice")

	bob := dialWS(t, server)
	bobSnapshot := joinWS(t, bob, code, "bob")

	var snap struct {
		Participants []struct {
			Id      string `json:"id"`
			IsAdmin bool   `json:"isAdmin"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(bobSnapshot, &snap))
	require.Len(t, snap.Participants, 2)

	var bobId string
	for _, p := range snap.Participants {
		if !p.IsAdmin {
			bobId = p.Id
		}
	}
	require.NotEmpty(t, bobId)

	send(t, alice, "kick-user", map[string]any{"participantId": bobId})

	// bob gets the private notice, then the server closes his socket
	readUntil(t, bob, "user-kicked")
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg wsMessage
		if err := bob.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, 4001), "expected close 4001, got %v", err)
			break
		}
	}

	// the room hears user-left with the kicked flag
	left := readUntil(t, alice, "user-left")
	var leftPayload struct {
		Id     string `json:"id"`
		Kicked bool   `json:"kicked"`
	}
	require.NoError(t, json.Unmarshal(left, &leftPayload))
	assert.Equal(t, bobId, leftPayload.Id)
	assert.True(t, leftPayload.Kicked)
}
