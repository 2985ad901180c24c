package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Watch follows the mirror at url, calling fn for each line until the
// mirror closes or ctx is cancelled. A normal close returns nil.
func Watch(ctx context.Context, url string, fn func(Message)) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
	})
	defer stop()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return nil
			}
			return fmt.Errorf("mirror stream: %w", err)
		}
		fn(m)
	}
}
