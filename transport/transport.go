// Package transport moves opaque frames between a command channel and the
// worker hosting a processor. Implementations never inspect frame content.
package transport

import (
	"context"

	"github.com/teranos/ldx/errors"
)

// Transport is a bidirectional, message-oriented connection. Send and
// Receive may be called from different goroutines; neither is safe for
// concurrent use with itself unless the implementation says so.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	// Receive blocks for the next frame. It returns an error matching
	// errors.ErrTransportClosed once the connection is gone.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Kind names a transport in configuration.
type Kind string

const (
	KindPipe      Kind = "pipe"
	KindWebSocket Kind = "websocket"
	KindNATS      Kind = "nats"
)

func closed(reason string) error {
	return errors.Wrap(errors.ErrTransportClosed, reason)
}
