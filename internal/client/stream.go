package client

import (
	"context"
	"net/http"
	"time"

	"github.com/torosent/matchload/internal/websocket"
)

// Stream is the event stream connection a run drives.
type Stream interface {
	ReceiveMessage(ctx context.Context) (websocket.Message, error)
	SendJSON(ctx context.Context, v any) error
	Metrics() websocket.Metrics
	Close() error
}

// StreamDialer opens a Stream to url presenting header during the handshake.
type StreamDialer func(ctx context.Context, url string, header http.Header) (Stream, error)

// WebSocketDialer dials with gorilla/websocket, bounding the handshake by timeout.
func WebSocketDialer(handshakeTimeout time.Duration) StreamDialer {
	return func(ctx context.Context, url string, header http.Header) (Stream, error) {
		c := websocket.NewClient(websocket.Config{
			URL:              url,
			Headers:          header,
			HandshakeTimeout: handshakeTimeout,
		})
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}
