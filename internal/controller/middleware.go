package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncroom/server/pkg/ctxlogger"
	"github.com/syncroom/server/pkg/wsrouter"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", uuid.NewString()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}

func (c controller) loggingWSMw(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
	return func(ctx context.Context, conn *websocket.Conn, input any) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_id", uuid.NewString()))
		c.logger.DebugContext(ctx, "message received", "type", wsrouter.GetMessageTypeFromCtx(ctx))

		return next(ctx, conn, input)
	}
}
