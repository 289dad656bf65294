// Package connection defines the registry of live websocket
// connections by connection id.
package connection

import "errors"

var (
	ErrAlreadyExists = errors.New("connection already exists")
	ErrNotFound      = errors.New("connection not found")
)
