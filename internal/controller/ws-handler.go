package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/broadcast"
	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/ctxlogger"
	"github.com/syncroom/server/pkg/videourl"
	"github.com/syncroom/server/pkg/wsrouter"
)

// serveWS upgrades the request and runs the message loop until the
// client goes away. All outbound traffic for the connection flows
// through one broadcast.Conn writer; handlers never write to the
// websocket directly.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connId := uuid.NewString()
	conn := broadcast.NewConn(wsConn, c.logger)
	if err := c.connRepo.Add(connId, conn); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to register connection", "error", err)
		conn.Close()
		wsConn.Close()
		return
	}

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", connId))
	ctx = context.WithValue(ctx, connIdCtxKey, connId)

	c.logger.InfoContext(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

	defer func() {
		// the request context dies with the handler, teardown gets its own
		dctx := context.WithoutCancel(ctx)
		if err := c.roomService.Disconnect(dctx, connId); err != nil {
			c.logger.WarnContext(dctx, "failed to disconnect", "error", err)
		}
		c.connRepo.Remove(connId)
		conn.Close()
		wsConn.Close()

		c.logger.InfoContext(dctx, "websocket disconnected")
	}()

	if err := c.wsmux.ServeConn(ctx, wsConn); err != nil {
		c.logger.DebugContext(ctx, "websocket read loop ended", "error", err)
	}
}

type joinRoomInput struct {
	RoomCode string `json:"roomCode" validate:"required,len=8"`
	Username string `json:"userName" validate:"required,min=1,max=50"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input joinRoomInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomCode: input.RoomCode,
		Username: input.Username,
		ConnId:   c.getConnIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

type emptyInput struct{}

func (e *emptyInput) UnmarshalJSON([]byte) error {
	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, input emptyInput) error {
	if err := c.roomService.Disconnect(ctx, c.getConnIdFromCtx(ctx)); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

type playbackInput struct {
	CurrentTime float64 `json:"currentTime" validate:"min=0"`
}

func (c controller) handlePlayVideo(ctx context.Context, conn *websocket.Conn, input playbackInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.PlayVideo(ctx, &room.PlaybackParams{
		ConnId:      c.getConnIdFromCtx(ctx),
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to play video: %w", err)
	}

	return nil
}

func (c controller) handlePauseVideo(ctx context.Context, conn *websocket.Conn, input playbackInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.PauseVideo(ctx, &room.PlaybackParams{
		ConnId:      c.getConnIdFromCtx(ctx),
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to pause video: %w", err)
	}

	return nil
}

func (c controller) handleSeekVideo(ctx context.Context, conn *websocket.Conn, input playbackInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.SeekVideo(ctx, &room.PlaybackParams{
		ConnId:      c.getConnIdFromCtx(ctx),
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to seek video: %w", err)
	}

	return nil
}

type changeVideoInput struct {
	VideoURL string `json:"videoUrl" validate:"required"`
}

func (c controller) handleChangeVideo(ctx context.Context, conn *websocket.Conn, input changeVideoInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}
	if !videourl.IsValid(input.VideoURL) {
		return videourl.ErrUnsupportedURL
	}

	if err := c.roomService.ChangeVideo(ctx, &room.ChangeVideoParams{
		ConnId:   c.getConnIdFromCtx(ctx),
		VideoURL: input.VideoURL,
	}); err != nil {
		return fmt.Errorf("failed to change video: %w", err)
	}

	return nil
}

type chatMessageInput struct {
	Message string `json:"message" validate:"required"`
}

func (c controller) handleChatMessage(ctx context.Context, conn *websocket.Conn, input chatMessageInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		ConnId:  c.getConnIdFromCtx(ctx),
		Message: input.Message,
	}); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	return nil
}

type syncRequestInput struct {
	CurrentTime float64 `json:"currentTime" validate:"min=0"`
}

func (c controller) handleSyncRequest(ctx context.Context, conn *websocket.Conn, input syncRequestInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.SyncRequest(ctx, &room.SyncRequestParams{
		ConnId:      c.getConnIdFromCtx(ctx),
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}

	return nil
}

type kickUserInput struct {
	ParticipantId string `json:"participantId" validate:"required"`
}

func (c controller) handleKickUser(ctx context.Context, conn *websocket.Conn, input kickUserInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.KickParticipant(ctx, &room.KickParticipantParams{
		ConnId:        c.getConnIdFromCtx(ctx),
		ParticipantId: input.ParticipantId,
	}); err != nil {
		return fmt.Errorf("failed to kick user: %w", err)
	}

	return nil
}

func (c controller) validateInput(input any) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", wsrouter.ErrInvalidPayload, validationErrors)
	}

	return nil
}
