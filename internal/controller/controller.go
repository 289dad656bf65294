package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/syncroom/server/internal/broadcast"
	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/validator"
	"github.com/syncroom/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoom(ctx context.Context, roomCode string) (room.GetRoomResponse, error)
	GetHistory(ctx context.Context, roomCode string, limit int) ([]room.HistoryRecord, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	Disconnect(ctx context.Context, connId string) error
	KickParticipant(context.Context, *room.KickParticipantParams) error
	PlayVideo(context.Context, *room.PlaybackParams) error
	PauseVideo(context.Context, *room.PlaybackParams) error
	SeekVideo(context.Context, *room.PlaybackParams) error
	ChangeVideo(context.Context, *room.ChangeVideoParams) error
	SendChatMessage(context.Context, *room.SendChatMessageParams) error
	SyncRequest(context.Context, *room.SyncRequestParams) (room.SyncStateResponse, error)
}

type iConnRepo interface {
	Add(connId string, conn *broadcast.Conn) error
	Remove(connId string) error
	GetConn(connId string) (*broadcast.Conn, error)
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsmux       *wsrouter.WSRouter
}

func NewController(roomService iRoomService, connRepo iConnRepo, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		connRepo:    connRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
