package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/syncroom/server/internal/repository/room"
)

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	pipe := r.rc.TxPipeline()

	rm := room.Room{
		Code:         params.Code,
		Name:         params.Name,
		CreatedBy:    params.CreatedBy,
		VideoURL:     params.VideoURL,
		VideoTitle:   params.VideoTitle,
		IsPlaying:    params.IsPlaying,
		CurrentTime:  params.CurrentTime,
		IsActive:     true,
		CreatedAt:    params.CreatedAt.Unix(),
		LastActivity: params.LastActivity.Unix(),
	}
	pipe.HSet(ctx, r.getRoomKey(params.Code), rm)
	pipe.SAdd(ctx, roomsIndexKey, params.Code)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, code string) (room.Room, error) {
	var rm room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(code)).Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.Code == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	return rm, nil
}

func (r repo) RoomExists(ctx context.Context, code string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) UpdatePlayback(ctx context.Context, params *room.UpdatePlaybackParams) error {
	err := r.rc.HSet(ctx, r.getRoomKey(params.Code),
		"is_playing", params.IsPlaying,
		"current_time", params.CurrentTime,
		"last_activity", params.LastActivity.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	return nil
}

func (r repo) SetVideo(ctx context.Context, params *room.SetVideoParams) error {
	err := r.rc.HSet(ctx, r.getRoomKey(params.Code),
		"video_url", params.VideoURL,
		"video_title", params.VideoTitle,
		"is_playing", false,
		"current_time", 0.0,
		"last_activity", params.LastActivity.Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set video: %w", err)
	}

	return nil
}

func (r repo) Touch(ctx context.Context, code string, at time.Time) error {
	err := r.rc.HSet(ctx, r.getRoomKey(code), "last_activity", at.Unix()).Err()
	if err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}

	return nil
}

// Deactivate marks the room inactive and drops it from the active
// index. The hash and its history stay behind for later lookups.
func (r repo) Deactivate(ctx context.Context, code string) error {
	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, r.getRoomKey(code), "is_active", false)
	pipe.SRem(ctx, roomsIndexKey, code)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to deactivate room: %w", err)
	}

	return nil
}

// ListIdle returns codes of active rooms whose last activity is before
// the cutoff.
func (r repo) ListIdle(ctx context.Context, before time.Time) ([]string, error) {
	codes, err := r.rc.SMembers(ctx, roomsIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	cutoff := before.Unix()
	idle := make([]string, 0)
	for _, code := range codes {
		lastActivity, err := r.rc.HGet(ctx, r.getRoomKey(code), "last_activity").Int64()
		if err != nil {
			continue
		}

		if lastActivity < cutoff {
			idle = append(idle, code)
		}
	}

	return idle, nil
}
