package room

import (
	"context"
	"time"

	repository "github.com/syncroom/server/internal/repository/room"
)

// snapshot is a best-effort durable write of a room's playback state.
// Snapshots are queued so redis latency never sits inside the room
// lock; a full queue drops the snapshot, the next command re-enqueues a
// fresher one anyway.
type snapshot struct {
	code        string
	isPlaying   bool
	currentTime float64
	at          time.Time
}

func (s *service) enqueueSnapshot(snap snapshot) {
	select {
	case s.snapshots <- snap:
	default:
		s.logger.Debug("snapshot queue full, dropping", "roomCode", snap.code)
	}
}

func (s *service) snapshotWorker() {
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.snapshots:
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := s.roomRepo.UpdatePlayback(ctx, &repository.UpdatePlaybackParams{
				Code:         snap.code,
				IsPlaying:    snap.isPlaying,
				CurrentTime:  snap.currentTime,
				LastActivity: snap.at,
			})
			cancel()
			if err != nil {
				s.logger.Warn("failed to persist playback snapshot", "roomCode", snap.code, "error", err)
			}
		}
	}
}
