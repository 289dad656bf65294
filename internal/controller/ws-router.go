package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/broadcast"
	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/videourl"
	"github.com/syncroom/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.loggingWSMw)
	mux.SetErrorHandler(c.handleWSError)

	// membership
	wsrouter.Handle(mux, "join-room", c.handleJoinRoom)
	wsrouter.Handle(mux, "leave-room", c.handleLeaveRoom)
	wsrouter.Handle(mux, "kick-user", c.handleKickUser)

	// playback
	wsrouter.Handle(mux, "play-video", c.handlePlayVideo)
	wsrouter.Handle(mux, "pause-video", c.handlePauseVideo)
	wsrouter.Handle(mux, "seek-video", c.handleSeekVideo)
	wsrouter.Handle(mux, "change-video", c.handleChangeVideo)
	wsrouter.Handle(mux, "sync-request", c.handleSyncRequest)

	// chat
	wsrouter.Handle(mux, "chat-message", c.handleChatMessage)

	return mux
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleWSError reports a failed command privately to the sender. The
// reply goes through the connection's writer, never to the raw socket.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	code := errorCode(err)
	if code == "INTERNAL_ERROR" {
		c.logger.ErrorContext(ctx, "command failed", "error", err)
	} else {
		c.logger.DebugContext(ctx, "command rejected", "code", code, "error", err)
	}

	bc, getErr := c.connRepo.GetConn(c.getConnIdFromCtx(ctx))
	if getErr != nil {
		return
	}

	bc.Send(&broadcast.Message{
		Type: "error",
		Payload: errorPayload{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, room.ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, room.ErrPermissionDenied):
		return "FORBIDDEN"
	case errors.Is(err, room.ErrInvalidTarget):
		return "INVALID_TARGET"
	case errors.Is(err, room.ErrParticipantNotFound):
		return "PARTICIPANT_NOT_FOUND"
	case errors.Is(err, room.ErrMessageTooLong):
		return "MESSAGE_TOO_LONG"
	case errors.Is(err, videourl.ErrUnsupportedURL):
		return "UNSUPPORTED_VIDEO_URL"
	case errors.Is(err, wsrouter.ErrInvalidPayload):
		return "INVALID_PAYLOAD"
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		return "UNKNOWN_MESSAGE_TYPE"
	default:
		return "INTERNAL_ERROR"
	}
}
