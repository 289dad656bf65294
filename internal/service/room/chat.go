package room

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/syncroom/server/internal/broadcast"
)

const maxChatMessageLength = 500

type SendChatMessageParams struct {
	ConnId  string
	Message string
}

type chatMessagePayload struct {
	Username  string `json:"userName"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// SendChatMessage relays a chat line to the whole room, sender
// included, so every client renders the same transcript. Messages are
// trimmed; an empty result is silently dropped.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) error {
	message := strings.TrimSpace(params.Message)
	if message == "" {
		return nil
	}
	// the limit is in characters, multi-byte text counts per rune
	if utf8.RuneCountInString(message) > maxChatMessageLength {
		return ErrMessageTooLong
	}

	code, err := s.sessionRepo.RoomCodeByConnId(params.ConnId)
	if err != nil {
		return ErrRoomNotFound
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	sender, err := s.sessionRepo.GetParticipantByConnId(code, params.ConnId)
	if err != nil {
		return ErrParticipantNotFound
	}

	s.publisher.Publish(code, &broadcast.Message{
		Type: MsgChatMessage,
		Payload: chatMessagePayload{
			Username:  sender.Username,
			Message:   message,
			Timestamp: nowMillis(),
		},
	}, "")

	if err := s.sessionRepo.Touch(code); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	return nil
}
