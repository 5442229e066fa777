package wsclient

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
)

// Stream is an open push channel. Read blocks for the next frame.
type Stream interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a Stream to url.
type Dialer interface {
	Dial(ctx context.Context, url string) (Stream, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Stream, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Stream, error) { return f(ctx, url) }

// WebSocketDialer dials with coder/websocket.
type WebSocketDialer struct {
	HTTPClient *http.Client
	Header     http.Header
}

func (d WebSocketDialer) Dial(ctx context.Context, url string) (Stream, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: d.Header,
	})
	if err != nil {
		return nil, err
	}
	return &socketStream{conn: conn}, nil
}

type socketStream struct {
	conn *websocket.Conn
}

func (s *socketStream) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *socketStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
