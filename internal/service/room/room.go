package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/internal/repository/session"
)

type CreateRoomParams struct {
	Name      string
	CreatedBy string
}

type CreateRoomResponse struct {
	Room Room
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	now := time.Now()
	if err := s.roomRepo.SetRoom(ctx, &repository.SetRoomParams{
		Code:         code,
		Name:         params.Name,
		CreatedBy:    params.CreatedBy,
		CreatedAt:    now,
		LastActivity: now,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to store room: %w", err)
	}

	if err := s.sessionRepo.SetRoom(&session.SetRoomParams{
		Code:         code,
		Name:         params.Name,
		CreatedBy:    params.CreatedBy,
		CreatedAt:    now,
		LastActivity: now,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
	}

	rm, err := s.sessionRepo.GetRoom(code)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "roomCode", code, "createdBy", params.CreatedBy)

	return CreateRoomResponse{Room: roomView(rm)}, nil
}

// generateRoomCode draws random codes until one is unclaimed in the
// durable store. Collisions are astronomically unlikely at this
// keyspace, so a handful of attempts is plenty.
func (s *service) generateRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < roomCodeAttempts; i++ {
		code := s.generator.GenerateRandomString(roomCodeLength)

		exists, err := s.roomRepo.RoomExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", ErrRoomCodeExhausted
}

type GetRoomResponse struct {
	Room         Room
	Participants []Participant
}

func (s *service) GetRoom(ctx context.Context, roomCode string) (GetRoomResponse, error) {
	code := normalizeCode(roomCode)

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	if _, err := s.resolveRoom(ctx, code); err != nil {
		return GetRoomResponse{}, err
	}

	snap, err := s.roomSnapshot(code)
	if err != nil {
		return GetRoomResponse{}, err
	}

	return GetRoomResponse{
		Room:         snap.Room,
		Participants: snap.Participants,
	}, nil
}

// GetHistory returns the room's video history, most recent first. A
// non-positive limit returns everything the durable store kept.
func (s *service) GetHistory(ctx context.Context, roomCode string, limit int) ([]HistoryRecord, error) {
	code := normalizeCode(roomCode)

	exists, err := s.roomRepo.RoomExists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	stored, err := s.roomRepo.GetHistory(ctx, code)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}

	records := make([]HistoryRecord, 0, len(stored))
	for _, rec := range stored {
		records = append(records, HistoryRecord{
			VideoURL:   rec.VideoURL,
			VideoTitle: rec.VideoTitle,
			AddedBy:    rec.AddedBy,
			AddedAt:    rec.AddedAt,
		})
	}

	return records, nil
}

// CleanupIdleRooms sweeps rooms with no activity past the idle timeout.
// Live rooms are torn down with their connections; rooms that only
// exist durably are deactivated in place.
func (s *service) CleanupIdleRooms(ctx context.Context) {
	cutoff := time.Now().Add(-s.roomIdleTimeout)

	for _, code := range s.sessionRepo.ListRoomCodes() {
		s.sweepLiveRoom(ctx, code, cutoff)
	}

	idle, err := s.roomRepo.ListIdle(ctx, cutoff)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list idle rooms", "error", err)
		return
	}

	for _, code := range idle {
		if err := s.roomRepo.Deactivate(ctx, code); err != nil {
			s.logger.WarnContext(ctx, "failed to deactivate room", "roomCode", code, "error", err)
			continue
		}

		s.logger.InfoContext(ctx, "idle room deactivated", "roomCode", code)
	}
}

func (s *service) sweepLiveRoom(ctx context.Context, code string, cutoff time.Time) {
	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	rm, err := s.sessionRepo.GetRoom(code)
	if err != nil {
		return
	}
	if !rm.LastActivity.Before(cutoff) {
		return
	}

	if err := s.sessionRepo.RemoveRoom(code); err != nil && !errors.Is(err, session.ErrRoomNotFound) {
		s.logger.WarnContext(ctx, "failed to remove idle room", "roomCode", code, "error", err)
		return
	}
	s.publisher.CloseRoom(code)

	if err := s.roomRepo.Deactivate(ctx, code); err != nil {
		s.logger.WarnContext(ctx, "failed to deactivate room", "roomCode", code, "error", err)
	}

	s.logger.InfoContext(ctx, "idle room closed", "roomCode", code)
}
