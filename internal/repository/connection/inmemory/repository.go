package inmemory

import (
	"sync"

	"github.com/syncroom/server/internal/broadcast"
	"github.com/syncroom/server/internal/repository/connection"
)

type repo struct {
	conns map[string]*broadcast.Conn
	mu    sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		conns: make(map[string]*broadcast.Conn),
	}
}

func (r *repo) Add(connId string, conn *broadcast.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connId]; ok {
		return connection.ErrAlreadyExists
	}

	r.conns[connId] = conn

	return nil
}

func (r *repo) Remove(connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connId]; !ok {
		return connection.ErrNotFound
	}

	delete(r.conns, connId)

	return nil
}

func (r *repo) GetConn(connId string) (*broadcast.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}
