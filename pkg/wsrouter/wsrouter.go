package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, input T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes       map[string]HandlerFunc[json.RawMessage]
	middlewares  []Middleware
	errorHandler ErrorHandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

// Use appends a middleware. Middlewares run in registration order around
// every handler.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) SetErrorHandler(h ErrorHandlerFunc) {
	r.errorHandler = h
}

// Handle registers a typed handler for a message type. The raw payload is
// unmarshalled into T before the handler runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidPayload, err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// ServeConn reads messages from the connection until a read error occurs
// and dispatches each one to its registered handler. Handler errors are
// passed to the error handler and do not terminate the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, exists := r.routes[msg.Type]
		if !exists {
			r.handleError(msgCtx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
			continue
		}

		wrapped := r.wrap(handler)
		if err := wrapped(msgCtx, conn, msg.Payload); err != nil {
			r.handleError(msgCtx, conn, err)
		}
	}
}

func (r *WSRouter) wrap(handler HandlerFunc[json.RawMessage]) HandlerFunc[any] {
	h := func(ctx context.Context, conn *websocket.Conn, payload any) error {
		return handler(ctx, conn, payload.(json.RawMessage))
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

func (r *WSRouter) handleError(ctx context.Context, conn *websocket.Conn, err error) {
	if r.errorHandler != nil {
		r.errorHandler(ctx, conn, err)
	}
}
