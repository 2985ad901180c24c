package mirror

import (
	"errors"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/nusig/internal/transcript"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size accepted from a viewer
	maxMessageSize = 512
)

// streamTranscript sends the backlog and then every new line until the
// viewer goes away
func streamTranscript(conn *websocket.Conn, buf *transcript.Buffer) error {
	backlog, feed, cancel := buf.Tail()
	defer cancel()

	gone := make(chan struct{})
	go readPump(conn, gone)

	for _, l := range backlog {
		if err := writeMessage(conn, FromLine(l)); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return nil
		case l, ok := <-feed:
			if !ok {
				return nil
			}
			if err := writeMessage(conn, FromLine(l)); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

// readPump discards viewer input and closes gone when the viewer
// disconnects or stops answering pings
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func writeMessage(conn *websocket.Conn, m Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(m)
}

// isClosed reports errors that just mean the peer went away
func isClosed(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}
