package wsrouter

import "context"

type ctxKey int

const messageTypeKey ctxKey = iota

func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, ok := ctx.Value(messageTypeKey).(string)
	if !ok {
		return ""
	}

	return messageType
}
