package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// ErrStreamEnded is returned when the connection closes before the final
// frame arrives.
var ErrStreamEnded = errors.New("stream ended before game over")

// Stream dials a /ws/play URL and calls fn for every frame until the final
// frame has been handled. An error from fn stops the stream and is returned.
func Stream(ctx context.Context, url string, fn func(Frame) error) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrStreamEnded
			}
			return fmt.Errorf("read frame: %w", err)
		}

		var f Frame
		if err := json.Unmarshal(message, &f); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}
		if f.Done {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}
