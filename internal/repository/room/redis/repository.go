package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const roomsIndexKey = "rooms"

type repo struct {
	rc           *redis.Client
	historyLimit int
}

func NewRepo(rc *redis.Client, historyLimit int) *repo {
	return &repo{
		rc:           rc,
		historyLimit: historyLimit,
	}
}

func (r repo) getRoomKey(code string) string {
	return "room:" + code
}

func (r repo) getHistoryKey(code string) string {
	return "room:" + code + ":history"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
