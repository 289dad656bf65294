package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/syncroom/server/internal/repository/room"
)

// AppendHistory pushes a record to the front of the room's video
// history and trims the list to the configured limit.
func (r repo) AppendHistory(ctx context.Context, params *room.AppendHistoryParams) error {
	record := room.HistoryRecord{
		VideoURL:   params.VideoURL,
		VideoTitle: params.VideoTitle,
		AddedBy:    params.AddedBy,
		AddedAt:    params.AddedAt.Unix(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	pipe := r.rc.TxPipeline()

	historyKey := r.getHistoryKey(params.Code)
	pipe.LPush(ctx, historyKey, raw)
	pipe.LTrim(ctx, historyKey, 0, int64(r.historyLimit)-1)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	return nil
}

// GetHistory returns the room's history, most recent first.
func (r repo) GetHistory(ctx context.Context, code string) ([]room.HistoryRecord, error) {
	raws, err := r.rc.LRange(ctx, r.getHistoryKey(code), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	records := make([]room.HistoryRecord, 0, len(raws))
	for _, raw := range raws {
		var record room.HistoryRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
		}

		records = append(records, record)
	}

	return records, nil
}
