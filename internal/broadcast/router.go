package broadcast

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Router fans events out to every connection subscribed to a room
// channel. Callers that need commit-ordered delivery publish while
// holding the room's serialization lock: messages reach each
// subscriber's queue in publish order, and each queue is drained by a
// single writer, so subscribers observe one room's events in the order
// its mutations committed.
type Router struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]*Conn
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		logger: logger,
		rooms:  make(map[string]map[string]*Conn),
	}
}

func (r *Router) Subscribe(roomCode, connId string, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.rooms[roomCode]
	if !ok {
		subs = make(map[string]*Conn)
		r.rooms[roomCode] = subs
	}
	subs[connId] = conn
}

// Unsubscribe removes the connection from the room channel. The
// connection itself stays open; its lifecycle belongs to whoever
// created it.
func (r *Router) Unsubscribe(roomCode, connId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.rooms[roomCode]
	if !ok {
		return
	}

	delete(subs, connId)
	if len(subs) == 0 {
		delete(r.rooms, roomCode)
	}
}

// Publish enqueues the message to every subscriber of the room except
// excludeConnId. Pass an empty excludeConnId to reach everyone.
func (r *Router) Publish(roomCode string, msg *Message, excludeConnId string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connId, conn := range r.rooms[roomCode] {
		if connId == excludeConnId {
			continue
		}
		conn.Send(msg)
	}
}

// CloseRoom sends a close frame to every remaining subscriber and
// drops the room's subscription set.
func (r *Router) CloseRoom(roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, conn := range r.rooms[roomCode] {
		conn.SendClose(websocket.CloseNormalClosure, "room closed")
	}
	delete(r.rooms, roomCode)
}
