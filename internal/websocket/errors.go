// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrHubClosed      = errors.New("hub is not running")
	ErrUnknownChannel = errors.New("unknown channel")
)
