package room

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/syncroom/server/internal/broadcast"
	repository "github.com/syncroom/server/internal/repository/room"
	"github.com/syncroom/server/internal/repository/session"
	"github.com/syncroom/server/pkg/videourl"
)

type PlaybackParams struct {
	ConnId      string
	CurrentTime float64
}

type playbackPayload struct {
	CurrentTime float64 `json:"currentTime"`
	Timestamp   int64   `json:"timestamp"`
}

// PlayVideo starts playback at the given position. Admin only. The
// resulting broadcast skips the sender, whose player already reflects
// the command.
func (s *service) PlayVideo(ctx context.Context, params *PlaybackParams) error {
	return s.setPlayback(ctx, params, true, MsgVideoPlay)
}

// PauseVideo pauses playback at the given position. Admin only.
func (s *service) PauseVideo(ctx context.Context, params *PlaybackParams) error {
	return s.setPlayback(ctx, params, false, MsgVideoPause)
}

func (s *service) setPlayback(ctx context.Context, params *PlaybackParams, isPlaying bool, msgType string) error {
	code, sender, err := s.resolveAdminCommand(params.ConnId)
	if err != nil {
		return err
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	if _, err := s.authorizeAdmin(code, params.ConnId); err != nil {
		return err
	}

	if err := s.sessionRepo.UpdatePlayback(&session.UpdatePlaybackParams{
		RoomCode:    code,
		IsPlaying:   isPlaying,
		CurrentTime: params.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	s.publisher.Publish(code, &broadcast.Message{
		Type: msgType,
		Payload: playbackPayload{
			CurrentTime: params.CurrentTime,
			Timestamp:   nowMillis(),
		},
	}, params.ConnId)

	s.enqueueSnapshot(snapshot{
		code:        code,
		isPlaying:   isPlaying,
		currentTime: params.CurrentTime,
		at:          time.Now(),
	})

	s.logger.DebugContext(ctx, "playback updated",
		"roomCode", code,
		"isPlaying", isPlaying,
		"currentTime", params.CurrentTime,
		"by", sender,
	)

	return nil
}

// SeekVideo jumps to a position without touching the play/pause state.
// Admin only.
func (s *service) SeekVideo(ctx context.Context, params *PlaybackParams) error {
	code, _, err := s.resolveAdminCommand(params.ConnId)
	if err != nil {
		return err
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	if _, err := s.authorizeAdmin(code, params.ConnId); err != nil {
		return err
	}

	rm, err := s.sessionRepo.GetRoom(code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.sessionRepo.UpdatePlayback(&session.UpdatePlaybackParams{
		RoomCode:    code,
		IsPlaying:   rm.IsPlaying,
		CurrentTime: params.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	s.publisher.Publish(code, &broadcast.Message{
		Type: MsgVideoSeek,
		Payload: playbackPayload{
			CurrentTime: params.CurrentTime,
			Timestamp:   nowMillis(),
		},
	}, params.ConnId)

	s.enqueueSnapshot(snapshot{
		code:        code,
		isPlaying:   rm.IsPlaying,
		currentTime: params.CurrentTime,
		at:          time.Now(),
	})

	return nil
}

type ChangeVideoParams struct {
	ConnId   string
	VideoURL string
}

type videoChangedPayload struct {
	VideoURL   string         `json:"videoUrl"`
	VideoTitle string         `json:"videoTitle,omitempty"`
	AddedBy    string         `json:"addedBy"`
	VideoInfo  videourl.Video `json:"videoInfo"`
	Timestamp  int64          `json:"timestamp"`
}

// ChangeVideo swaps the room's video, resetting playback to paused at
// zero, and appends the new selection to the room's history. The
// broadcast goes to everyone including the sender, so all players load
// the new video from the same event. Admin only.
func (s *service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) error {
	video, err := videourl.Classify(params.VideoURL)
	if err != nil {
		return err
	}

	// title lookup happens before the room lock, it can take a while
	title := s.lookupTitle(ctx, video)

	code, _, err := s.resolveAdminCommand(params.ConnId)
	if err != nil {
		return err
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	sender, err := s.authorizeAdmin(code, params.ConnId)
	if err != nil {
		return err
	}

	now := time.Now()
	// durable writes go first so a storage failure aborts the command
	// before anyone hears about the new video
	if err := s.roomRepo.AppendHistory(ctx, &repository.AppendHistoryParams{
		Code:       code,
		VideoURL:   video.URL,
		VideoTitle: title,
		AddedBy:    sender.Username,
		AddedAt:    now,
	}); err != nil {
		return err
	}
	if err := s.roomRepo.SetVideo(ctx, &repository.SetVideoParams{
		Code:         code,
		VideoURL:     video.URL,
		VideoTitle:   title,
		LastActivity: now,
	}); err != nil {
		return err
	}

	if err := s.sessionRepo.SetVideo(&session.SetVideoParams{
		RoomCode:   code,
		VideoURL:   video.URL,
		VideoTitle: title,
	}); err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	s.publisher.Publish(code, &broadcast.Message{
		Type: MsgVideoChanged,
		Payload: videoChangedPayload{
			VideoURL:   video.URL,
			VideoTitle: title,
			AddedBy:    sender.Username,
			VideoInfo:  video,
			Timestamp:  nowMillis(),
		},
	}, "")

	s.logger.InfoContext(ctx, "video changed", "roomCode", code, "videoUrl", video.URL)

	return nil
}

func (s *service) lookupTitle(ctx context.Context, video videourl.Video) string {
	if s.metaFetcher == nil || video.Platform != videourl.PlatformYouTube {
		return ""
	}

	data, err := s.metaFetcher(video.Id)
	if err != nil {
		s.logger.DebugContext(ctx, "failed to fetch video title", "videoId", video.Id, "error", err)
		return ""
	}

	return data.Title
}

type SyncRequestParams struct {
	ConnId      string
	CurrentTime float64
}

type SyncStateResponse struct {
	VideoURL     *string `json:"videoUrl"`
	State        string  `json:"state"`
	CurrentTime  float64 `json:"currentTime"`
	ShouldReseek bool    `json:"shouldReseek"`
	Timestamp    int64   `json:"timestamp"`
}

// SyncRequest answers a client's drift probe with the authoritative
// playback state. The reply is private; nobody else cares that one
// player drifted.
func (s *service) SyncRequest(ctx context.Context, params *SyncRequestParams) (SyncStateResponse, error) {
	code, err := s.sessionRepo.RoomCodeByConnId(params.ConnId)
	if err != nil {
		return SyncStateResponse{}, ErrRoomNotFound
	}

	unlock := s.sessionRepo.LockRoom(code)
	defer unlock()

	if _, err := s.sessionRepo.GetParticipantByConnId(code, params.ConnId); err != nil {
		return SyncStateResponse{}, ErrParticipantNotFound
	}

	rm, err := s.sessionRepo.GetRoom(code)
	if err != nil {
		return SyncStateResponse{}, ErrRoomNotFound
	}

	resp := SyncStateResponse{
		State:        stateOf(rm.IsPlaying),
		CurrentTime:  rm.CurrentTime,
		ShouldReseek: s.ShouldReseek(params.CurrentTime, rm.CurrentTime),
		Timestamp:    nowMillis(),
	}
	if rm.VideoURL != "" {
		u := rm.VideoURL
		resp.VideoURL = &u
	}

	if conn, err := s.connRepo.GetConn(params.ConnId); err == nil {
		conn.Send(&broadcast.Message{
			Type:    MsgSyncState,
			Payload: resp,
		})
	}

	return resp, nil
}

// ShouldReseek reports whether a client position has drifted past the
// tolerance from the authoritative one.
func (s *service) ShouldReseek(local, authoritative float64) bool {
	return math.Abs(local-authoritative) > s.syncTolerance
}

// resolveAdminCommand maps the sender's connection to its room. A
// connection with no participant anywhere gets permission denied
// rather than a room lookup failure, it never proved membership.
func (s *service) resolveAdminCommand(connId string) (string, string, error) {
	code, err := s.sessionRepo.RoomCodeByConnId(connId)
	if err != nil {
		return "", "", ErrPermissionDenied
	}

	return code, connId, nil
}
