package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syncroom/server/internal/broadcast"
	"github.com/syncroom/server/internal/repository/session"
)

type JoinRoomParams struct {
	RoomCode string
	Username string
	ConnId   string
}

type JoinRoomResponse struct {
	Participant Participant
	Snapshot    RoomSnapshot
}

type userJoinedPayload struct {
	Participant  Participant   `json:"participant"`
	Participants []Participant `json:"participants"`
	Timestamp    int64         `json:"timestamp"`
}

// JoinRoom adds the connection's participant to the room, subscribes
// the connection to the room's broadcasts and hands the joiner a
// private state snapshot. The first participant of a room becomes its
// admin. Joining twice on the same connection is a no-op that resends
// the snapshot; joining a different room first leaves the current one,
// a connection owns at most one participant row at a time.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	code := normalizeCode(params.RoomCode)

	if bound, err := s.sessionRepo.RoomCodeByConnId(params.ConnId); err == nil && bound != code {
		if err := s.Disconnect(ctx, params.ConnId); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to leave previous room: %w", err)
		}
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	rm, err := s.resolveRoom(ctx, code)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	participants, err := s.sessionRepo.ListParticipants(code)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to list participants: %w", err)
	}

	alreadyJoined := false
	for _, p := range participants {
		if p.ConnId == params.ConnId {
			alreadyJoined = true
			break
		}
	}
	if !alreadyJoined && s.membersLimit > 0 && len(participants) >= s.membersLimit {
		return JoinRoomResponse{}, ErrRoomFull
	}

	participant, err := s.sessionRepo.UpsertParticipant(&session.UpsertParticipantParams{
		Id:       uuid.NewString(),
		RoomCode: code,
		Username: params.Username,
		ConnId:   params.ConnId,
		IsAdmin:  len(participants) == 0,
	})
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to upsert participant: %w", err)
	}

	conn, err := s.connRepo.GetConn(params.ConnId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get connection: %w", err)
	}
	s.publisher.Subscribe(code, params.ConnId, conn)

	snap, err := s.roomSnapshot(code)
	if err != nil {
		return JoinRoomResponse{}, err
	}
	conn.Send(&broadcast.Message{
		Type:    MsgRoomUpdate,
		Payload: snap,
	})

	if !alreadyJoined {
		s.publisher.Publish(code, &broadcast.Message{
			Type: MsgUserJoined,
			Payload: userJoinedPayload{
				Participant:  participantView(participant),
				Participants: snap.Participants,
				Timestamp:    nowMillis(),
			},
		}, params.ConnId)
	}

	if err := s.sessionRepo.Touch(code); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to touch room: %w", err)
	}
	s.enqueueSnapshot(snapshot{
		code:        code,
		isPlaying:   rm.IsPlaying,
		currentTime: rm.CurrentTime,
		at:          time.Now(),
	})

	s.logger.InfoContext(ctx, "participant joined",
		"roomCode", code,
		"participantId", participant.Id,
		"isAdmin", participant.IsAdmin,
	)

	return JoinRoomResponse{
		Participant: participantView(participant),
		Snapshot:    snap,
	}, nil
}

type userLeftPayload struct {
	Id           string        `json:"id"`
	Username     string        `json:"userName"`
	Kicked       bool          `json:"kicked"`
	NewAdminId   *string       `json:"newAdminId,omitempty"`
	Participants []Participant `json:"participants"`
	Timestamp    int64         `json:"timestamp"`
}

// Disconnect removes whatever participant the connection owns. It is
// safe to call for connections that never joined a room, so transport
// teardown can always call it. When the leaving participant was admin,
// the earliest joined remaining participant is promoted; when the room
// empties, it is torn down and deactivated durably.
func (s *service) Disconnect(ctx context.Context, connId string) error {
	code, err := s.sessionRepo.RoomCodeByConnId(connId)
	if err != nil {
		if errors.Is(err, session.ErrConnNotFound) {
			return nil
		}

		return fmt.Errorf("failed to resolve room: %w", err)
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	participant, err := s.sessionRepo.GetParticipantByConnId(code, connId)
	if err != nil {
		// removed concurrently, nothing left to do
		if errors.Is(err, session.ErrParticipantNotFound) || errors.Is(err, session.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to get participant: %w", err)
	}

	if _, err := s.sessionRepo.RemoveParticipant(code, participant.Id); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	s.publisher.Unsubscribe(code, connId)

	remaining, err := s.sessionRepo.ListParticipants(code)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}

	if len(remaining) == 0 {
		if err := s.sessionRepo.RemoveRoom(code); err != nil {
			return fmt.Errorf("failed to remove room: %w", err)
		}
		s.publisher.CloseRoom(code)

		if err := s.roomRepo.Deactivate(ctx, code); err != nil {
			s.logger.WarnContext(ctx, "failed to deactivate room", "roomCode", code, "error", err)
		}

		s.logger.InfoContext(ctx, "room emptied", "roomCode", code)

		return nil
	}

	var newAdminId *string
	if participant.IsAdmin {
		successor := remaining[0]
		if err := s.sessionRepo.SetParticipantAdmin(code, successor.Id, true); err != nil {
			return fmt.Errorf("failed to promote admin: %w", err)
		}
		newAdminId = &successor.Id

		s.logger.InfoContext(ctx, "admin promoted", "roomCode", code, "participantId", successor.Id)
	}

	// list after the removal and any promotion so admin flags are fresh
	roster, err := s.rosterViews(code)
	if err != nil {
		return err
	}

	s.publisher.Publish(code, &broadcast.Message{
		Type: MsgUserLeft,
		Payload: userLeftPayload{
			Id:           participant.Id,
			Username:     participant.Username,
			Kicked:       false,
			NewAdminId:   newAdminId,
			Participants: roster,
			Timestamp:    nowMillis(),
		},
	}, "")

	if err := s.sessionRepo.Touch(code); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	return nil
}

type KickParticipantParams struct {
	ConnId        string
	ParticipantId string
}

type userKickedPayload struct {
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// Close code sent to a kicked participant's websocket.
const kickCloseCode = 4001

// KickParticipant removes a participant on the admin's order. The
// admin itself is never a valid target, which also rules out
// self-kicks.
func (s *service) KickParticipant(ctx context.Context, params *KickParticipantParams) error {
	code, err := s.sessionRepo.RoomCodeByConnId(params.ConnId)
	if err != nil {
		if errors.Is(err, session.ErrConnNotFound) {
			return ErrPermissionDenied
		}

		return fmt.Errorf("failed to resolve room: %w", err)
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	if _, err := s.authorizeAdmin(code, params.ConnId); err != nil {
		return err
	}

	target, err := s.sessionRepo.GetParticipant(code, params.ParticipantId)
	if err != nil {
		if errors.Is(err, session.ErrParticipantNotFound) || errors.Is(err, session.ErrRoomNotFound) {
			return ErrInvalidTarget
		}

		return fmt.Errorf("failed to get target: %w", err)
	}
	if target.IsAdmin {
		return ErrInvalidTarget
	}

	if _, err := s.sessionRepo.RemoveParticipant(code, target.Id); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	if conn, err := s.connRepo.GetConn(target.ConnId); err == nil {
		conn.Send(&broadcast.Message{
			Type: MsgUserKicked,
			Payload: userKickedPayload{
				Reason:    "kicked by admin",
				Timestamp: nowMillis(),
			},
		})
		conn.SendClose(kickCloseCode, "kicked")
	}
	s.publisher.Unsubscribe(code, target.ConnId)

	roster, err := s.rosterViews(code)
	if err != nil {
		return err
	}

	s.publisher.Publish(code, &broadcast.Message{
		Type: MsgUserLeft,
		Payload: userLeftPayload{
			Id:           target.Id,
			Username:     target.Username,
			Kicked:       true,
			Participants: roster,
			Timestamp:    nowMillis(),
		},
	}, "")

	if err := s.sessionRepo.Touch(code); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	s.logger.InfoContext(ctx, "participant kicked", "roomCode", code, "participantId", target.Id)

	return nil
}
