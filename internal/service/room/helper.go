package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/internal/repository/session"
)

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// resolveRoom returns the live room, rehydrating it from the durable
// store on a cold lookup. A room that was deactivated by the idle sweep
// comes back active here, so a valid command against a swept room
// simply revives it. Requires the room lock.
func (s *service) resolveRoom(ctx context.Context, code string) (session.Room, error) {
	rm, err := s.sessionRepo.GetRoom(code)
	if err == nil {
		return rm, nil
	}
	if !errors.Is(err, session.ErrRoomNotFound) {
		return session.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	stored, err := s.roomRepo.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return session.Room{}, ErrRoomNotFound
		}

		return session.Room{}, fmt.Errorf("failed to get stored room: %w", err)
	}

	now := time.Now()
	setParams := session.SetRoomParams{
		Code:         stored.Code,
		Name:         stored.Name,
		CreatedBy:    stored.CreatedBy,
		VideoURL:     stored.VideoURL,
		VideoTitle:   stored.VideoTitle,
		IsPlaying:    false,
		CurrentTime:  stored.CurrentTime,
		CreatedAt:    time.Unix(stored.CreatedAt, 0),
		LastActivity: now,
	}
	if err := s.sessionRepo.SetRoom(&setParams); err != nil {
		return session.Room{}, fmt.Errorf("failed to rehydrate room: %w", err)
	}

	if !stored.IsActive {
		s.logger.InfoContext(ctx, "reactivating room", "roomCode", code)
	}
	// write-through refreshes last activity and puts the room back in
	// the active index
	if err := s.roomRepo.SetRoom(ctx, &repository.SetRoomParams{
		Code:         setParams.Code,
		Name:         setParams.Name,
		CreatedBy:    setParams.CreatedBy,
		VideoURL:     setParams.VideoURL,
		VideoTitle:   setParams.VideoTitle,
		IsPlaying:    setParams.IsPlaying,
		CurrentTime:  setParams.CurrentTime,
		CreatedAt:    setParams.CreatedAt,
		LastActivity: now,
	}); err != nil {
		return session.Room{}, fmt.Errorf("failed to reactivate stored room: %w", err)
	}

	return s.sessionRepo.GetRoom(code)
}

// authorizeAdmin resolves the sender by connection id and rejects
// non-admins. Requires the room lock.
func (s *service) authorizeAdmin(code, connId string) (session.Participant, error) {
	sender, err := s.sessionRepo.GetParticipantByConnId(code, connId)
	if err != nil {
		if errors.Is(err, session.ErrParticipantNotFound) || errors.Is(err, session.ErrRoomNotFound) {
			return session.Participant{}, ErrPermissionDenied
		}

		return session.Participant{}, fmt.Errorf("failed to get sender: %w", err)
	}

	if !sender.IsAdmin {
		return session.Participant{}, ErrPermissionDenied
	}

	return sender, nil
}

func participantView(p session.Participant) Participant {
	return Participant{
		Id:       p.Id,
		Username: p.Username,
		IsAdmin:  p.IsAdmin,
		JoinedAt: p.JoinedAt.UnixMilli(),
	}
}

func roomView(rm session.Room) Room {
	var videoURL *string
	if rm.VideoURL != "" {
		u := rm.VideoURL
		videoURL = &u
	}

	return Room{
		RoomCode:        rm.Code,
		Name:            rm.Name,
		CreatedBy:       rm.CreatedBy,
		CurrentVideoURL: videoURL,
		VideoTitle:      rm.VideoTitle,
		VideoState:      stateOf(rm.IsPlaying),
		CurrentTime:     rm.CurrentTime,
		CreatedAt:       rm.CreatedAt.UnixMilli(),
	}
}

// rosterViews lists the room's participants in join order as wire
// views. Requires the room lock.
func (s *service) rosterViews(code string) ([]Participant, error) {
	participants, err := s.sessionRepo.ListParticipants(code)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	views := make([]Participant, 0, len(participants))
	for _, p := range participants {
		views = append(views, participantView(p))
	}

	return views, nil
}

// roomSnapshot builds the private state dump a joiner receives.
// Requires the room lock.
func (s *service) roomSnapshot(code string) (RoomSnapshot, error) {
	rm, err := s.sessionRepo.GetRoom(code)
	if err != nil {
		return RoomSnapshot{}, fmt.Errorf("failed to get room: %w", err)
	}

	views, err := s.rosterViews(code)
	if err != nil {
		return RoomSnapshot{}, err
	}

	return RoomSnapshot{
		Room:         roomView(rm),
		Participants: views,
	}, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
