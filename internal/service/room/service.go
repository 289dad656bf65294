// Package room implements the live session coordinator: membership and
// admin election, playback command fan-out, chat relay, drift
// reconciliation and the idle sweep. Every command for a room runs
// under that room's lock, so state mutation and broadcast commit in
// one order.
package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/syncroom/server/internal/broadcast"
	repository "github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/internal/repository/session"
	"github.com/syncroom/server/pkg/randstr"
	"github.com/syncroom/server/pkg/videometa"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomCodeExhausted   = errors.New("failed to generate unique room code")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidTarget       = errors.New("invalid kick target")
	ErrMessageTooLong      = errors.New("message too long")
)

type iSessionRepo interface {
	LockRoom(code string) func()
	GetRoom(code string) (session.Room, error)
	SetRoom(*session.SetRoomParams) error
	RemoveRoom(code string) error
	Touch(code string) error
	UpdatePlayback(*session.UpdatePlaybackParams) error
	SetVideo(*session.SetVideoParams) error
	ListRoomCodes() []string
	UpsertParticipant(*session.UpsertParticipantParams) (session.Participant, error)
	RemoveParticipant(code, participantId string) (session.Participant, error)
	ListParticipants(code string) ([]session.Participant, error)
	SetParticipantAdmin(code, participantId string, isAdmin bool) error
	GetParticipant(code, participantId string) (session.Participant, error)
	GetParticipantByConnId(code, connId string) (session.Participant, error)
	RoomCodeByConnId(connId string) (string, error)
}

type iRoomRepo interface {
	SetRoom(context.Context, *repository.SetRoomParams) error
	GetRoom(ctx context.Context, code string) (repository.Room, error)
	RoomExists(ctx context.Context, code string) (bool, error)
	UpdatePlayback(context.Context, *repository.UpdatePlaybackParams) error
	SetVideo(context.Context, *repository.SetVideoParams) error
	Touch(ctx context.Context, code string, at time.Time) error
	Deactivate(ctx context.Context, code string) error
	ListIdle(ctx context.Context, before time.Time) ([]string, error)
	AppendHistory(context.Context, *repository.AppendHistoryParams) error
	GetHistory(ctx context.Context, code string) ([]repository.HistoryRecord, error)
}

type iConnRepo interface {
	GetConn(connId string) (*broadcast.Conn, error)
}

type iPublisher interface {
	Subscribe(roomCode, connId string, conn *broadcast.Conn)
	Unsubscribe(roomCode, connId string)
	Publish(roomCode string, msg *broadcast.Message, excludeConnId string)
	CloseRoom(roomCode string)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit    int
	RoomIdleTimeout time.Duration
	SyncTolerance   float64
	SnapshotWorkers int
}

type service struct {
	sessionRepo     iSessionRepo
	roomRepo        iRoomRepo
	connRepo        iConnRepo
	publisher       iPublisher
	generator       iGenerator
	metaFetcher     func(videoId string) (*videometa.VideoData, error)
	logger          *slog.Logger
	membersLimit    int
	roomIdleTimeout time.Duration
	syncTolerance   float64
	snapshots       chan snapshot
	done            chan struct{}
}

const (
	roomCodeLength        = 8
	roomCodeAttempts      = 10
	defaultSyncTolerance  = 1.5
	snapshotQueueCapacity = 256
)

// Ambiguous characters (0, O, 1, I) are left out of room codes.
var roomCodeAlphabet = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

func NewService(sessionRepo iSessionRepo, roomRepo iRoomRepo, connRepo iConnRepo, publisher iPublisher, cfg Config, logger *slog.Logger) *service {
	if cfg.SyncTolerance <= 0 {
		cfg.SyncTolerance = defaultSyncTolerance
	}
	if cfg.SnapshotWorkers <= 0 {
		cfg.SnapshotWorkers = 1
	}

	s := service{
		sessionRepo:     sessionRepo,
		roomRepo:        roomRepo,
		connRepo:        connRepo,
		publisher:       publisher,
		generator:       randstr.New(roomCodeAlphabet),
		metaFetcher:     videometa.Get,
		logger:          logger,
		membersLimit:    cfg.MembersLimit,
		roomIdleTimeout: cfg.RoomIdleTimeout,
		syncTolerance:   cfg.SyncTolerance,
		snapshots:       make(chan snapshot, snapshotQueueCapacity),
		done:            make(chan struct{}),
	}

	for i := 0; i < cfg.SnapshotWorkers; i++ {
		go s.snapshotWorker()
	}

	return &s
}

// Close stops the snapshot workers. Pending snapshots are dropped.
func (s *service) Close() {
	close(s.done)
}
