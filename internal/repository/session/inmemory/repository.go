// Package inmemory holds the authoritative room table. Mutations for a
// single room are serialized by the per-room lock handed out by
// LockRoom; every other method expects its caller to hold that lock for
// the room it touches. Different rooms never contend with each other.
package inmemory

import (
	"sync"
	"time"

	"github.com/syncroom/server/internal/repository/session"
)

type roomEntry struct {
	mu           sync.Mutex
	room         *session.Room
	participants []*session.Participant
	joinSeq      int64
}

type repo struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
	conns map[string]string
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]*roomEntry),
		conns: make(map[string]string),
	}
}

// LockRoom acquires the serialization token for a room code and returns
// the matching unlock. The entry is created on demand so a lock can be
// taken before the room exists (room creation does exactly that); an
// entry left without a room or participants is pruned on unlock.
func (r *repo) LockRoom(code string) func() {
	r.mu.Lock()
	entry, ok := r.rooms[code]
	if !ok {
		entry = &roomEntry{}
		r.rooms[code] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()

	return func() {
		empty := entry.room == nil && len(entry.participants) == 0
		entry.mu.Unlock()

		if empty {
			r.mu.Lock()
			if cur, ok := r.rooms[code]; ok && cur == entry {
				delete(r.rooms, code)
			}
			r.mu.Unlock()
		}
	}
}

func (r *repo) getEntry(code string) (*roomEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.rooms[code]
	return entry, ok
}

func (r *repo) GetRoom(code string) (session.Room, error) {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return session.Room{}, session.ErrRoomNotFound
	}

	return *entry.room, nil
}

func (r *repo) SetRoom(params *session.SetRoomParams) error {
	entry, ok := r.getEntry(params.Code)
	if !ok {
		return session.ErrRoomNotFound
	}

	entry.room = &session.Room{
		Code:         params.Code,
		Name:         params.Name,
		CreatedBy:    params.CreatedBy,
		VideoURL:     params.VideoURL,
		VideoTitle:   params.VideoTitle,
		IsPlaying:    params.IsPlaying,
		CurrentTime:  params.CurrentTime,
		IsActive:     true,
		CreatedAt:    params.CreatedAt,
		LastActivity: params.LastActivity,
	}

	return nil
}

func (r *repo) RemoveRoom(code string) error {
	entry, ok := r.getEntry(code)
	if !ok {
		return session.ErrRoomNotFound
	}

	r.mu.Lock()
	for _, p := range entry.participants {
		delete(r.conns, p.ConnId)
	}
	delete(r.rooms, code)
	r.mu.Unlock()

	entry.room = nil
	entry.participants = nil

	return nil
}

func (r *repo) Touch(code string) error {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return session.ErrRoomNotFound
	}

	entry.room.LastActivity = time.Now()

	return nil
}

func (r *repo) UpdatePlayback(params *session.UpdatePlaybackParams) error {
	entry, ok := r.getEntry(params.RoomCode)
	if !ok || entry.room == nil {
		return session.ErrRoomNotFound
	}

	entry.room.IsPlaying = params.IsPlaying
	entry.room.CurrentTime = params.CurrentTime
	entry.room.LastActivity = time.Now()

	return nil
}

// SetVideo swaps the current video and resets playback to paused at
// position zero in the same step.
func (r *repo) SetVideo(params *session.SetVideoParams) error {
	entry, ok := r.getEntry(params.RoomCode)
	if !ok || entry.room == nil {
		return session.ErrRoomNotFound
	}

	entry.room.VideoURL = params.VideoURL
	entry.room.VideoTitle = params.VideoTitle
	entry.room.IsPlaying = false
	entry.room.CurrentTime = 0
	entry.room.LastActivity = time.Now()

	return nil
}

func (r *repo) ListRoomCodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}

	return codes
}

// UpsertParticipant is idempotent per connection: a connection that
// already owns a participant row in the room gets that row back
// unchanged.
func (r *repo) UpsertParticipant(params *session.UpsertParticipantParams) (session.Participant, error) {
	entry, ok := r.getEntry(params.RoomCode)
	if !ok || entry.room == nil {
		return session.Participant{}, session.ErrRoomNotFound
	}

	for _, p := range entry.participants {
		if p.ConnId == params.ConnId {
			return *p, nil
		}
	}

	entry.joinSeq++
	participant := &session.Participant{
		Id:       params.Id,
		RoomCode: params.RoomCode,
		Username: params.Username,
		ConnId:   params.ConnId,
		IsAdmin:  params.IsAdmin,
		JoinedAt: time.Now(),
		JoinSeq:  entry.joinSeq,
	}
	entry.participants = append(entry.participants, participant)

	r.mu.Lock()
	r.conns[params.ConnId] = params.RoomCode
	r.mu.Unlock()

	return *participant, nil
}

func (r *repo) RemoveParticipant(code, participantId string) (session.Participant, error) {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return session.Participant{}, session.ErrRoomNotFound
	}

	for i, p := range entry.participants {
		if p.Id == participantId {
			entry.participants = append(entry.participants[:i], entry.participants[i+1:]...)

			r.mu.Lock()
			delete(r.conns, p.ConnId)
			r.mu.Unlock()

			return *p, nil
		}
	}

	return session.Participant{}, session.ErrParticipantNotFound
}

// ListParticipants returns the room's participants in join order.
func (r *repo) ListParticipants(code string) ([]session.Participant, error) {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return nil, session.ErrRoomNotFound
	}

	participants := make([]session.Participant, 0, len(entry.participants))
	for _, p := range entry.participants {
		participants = append(participants, *p)
	}

	return participants, nil
}

func (r *repo) SetParticipantAdmin(code, participantId string, isAdmin bool) error {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return session.ErrRoomNotFound
	}

	for _, p := range entry.participants {
		if p.Id == participantId {
			p.IsAdmin = isAdmin
			return nil
		}
	}

	return session.ErrParticipantNotFound
}

func (r *repo) GetParticipant(code, participantId string) (session.Participant, error) {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return session.Participant{}, session.ErrRoomNotFound
	}

	for _, p := range entry.participants {
		if p.Id == participantId {
			return *p, nil
		}
	}

	return session.Participant{}, session.ErrParticipantNotFound
}

func (r *repo) GetParticipantByConnId(code, connId string) (session.Participant, error) {
	entry, ok := r.getEntry(code)
	if !ok || entry.room == nil {
		return session.Participant{}, session.ErrRoomNotFound
	}

	for _, p := range entry.participants {
		if p.ConnId == connId {
			return *p, nil
		}
	}

	return session.Participant{}, session.ErrParticipantNotFound
}

// RoomCodeByConnId resolves which room a connection's participant lives
// in. Unlike the other methods it does not require the room lock; it
// only reads the index, so disconnect handling can find the room to
// lock.
func (r *repo) RoomCodeByConnId(connId string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.conns[connId]
	if !ok {
		return "", session.ErrConnNotFound
	}

	return code, nil
}
