package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncroom/server/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, 5)
}

func TestRepo_Room(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.GetRoom(ctx, "ABCD2345")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	createdAt := time.Now()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{
		Code:         "ABCD2345",
		Name:         "movie night",
		CreatedBy:    "alice",
		CreatedAt:    createdAt,
		LastActivity: createdAt,
	}))

	rm, err := r.GetRoom(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, "movie night", rm.Name)
	assert.Equal(t, "alice", rm.CreatedBy)
	assert.True(t, rm.IsActive)
	assert.Equal(t, createdAt.Unix(), rm.CreatedAt)

	exists, err := r.RoomExists(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		Code:         "ABCD2345",
		IsPlaying:    true,
		CurrentTime:  12.5,
		LastActivity: time.Now(),
	}))

	rm, err = r.GetRoom(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.True(t, rm.IsPlaying)
	assert.Equal(t, 12.5, rm.CurrentTime)

	require.NoError(t, r.SetVideo(ctx, &room.SetVideoParams{
		Code:         "ABCD2345",
		VideoURL:     "https://youtu.be/dQw4w9WgXcQ",
		VideoTitle:   "some video",
		LastActivity: time.Now(),
	}))

	rm, err = r.GetRoom(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.False(t, rm.IsPlaying)
	assert.Zero(t, rm.CurrentTime)
	assert.Equal(t, "some video", rm.VideoTitle)

	require.NoError(t, r.Deactivate(ctx, "ABCD2345"))

	rm, err = r.GetRoom(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.False(t, rm.IsActive)
}

func TestRepo_ListIdle(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	now := time.Now()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{
		Code:         "STALE234",
		Name:         "stale",
		CreatedBy:    "alice",
		CreatedAt:    now.Add(-48 * time.Hour),
		LastActivity: now.Add(-25 * time.Hour),
	}))
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{
		Code:         "FRESH234",
		Name:         "fresh",
		CreatedBy:    "bob",
		CreatedAt:    now,
		LastActivity: now,
	}))

	idle, err := r.ListIdle(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"STALE234"}, idle)

	// touching the stale room takes it out of the idle set
	require.NoError(t, r.Touch(ctx, "STALE234", now))

	idle, err = r.ListIdle(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, idle)
}

func TestRepo_History(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	history, err := r.GetHistory(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Empty(t, history)

	for i := 0; i < 7; i++ {
		require.NoError(t, r.AppendHistory(ctx, &room.AppendHistoryParams{
			Code:       "ABCD2345",
			VideoURL:   "https://youtu.be/video" + string(rune('a'+i)),
			VideoTitle: "video",
			AddedBy:    "alice",
			AddedAt:    time.Now(),
		}))
	}

	history, err = r.GetHistory(ctx, "ABCD2345")
	require.NoError(t, err)
	// trimmed to the limit, most recent first
	require.Len(t, history, 5)
	assert.Equal(t, "https://youtu.be/videog", history[0].VideoURL)
	assert.Equal(t, "https://youtu.be/videoc", history[4].VideoURL)
}
