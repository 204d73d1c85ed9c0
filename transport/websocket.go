package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSConn adapts a *websocket.Conn to Duplex, sending and receiving each
// envelope as one binary websocket message.
type WSConn struct {
	conn *websocket.Conn
}

// Upgrade promotes an HTTP request to a websocket connection and wraps it.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WSConn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: upgrade: %w", err)
	}
	return &WSConn{conn: conn}, nil
}

// Dial opens a client-side websocket connection to addr.
func Dial(ctx context.Context, addr string) (*WSConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &WSConn{conn: conn}, nil
}

// Send writes one binary message, honoring ctx's deadline if set.
func (w *WSConn) Send(ctx context.Context, msg []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		w.conn.SetWriteDeadline(deadline)
	} else {
		w.conn.SetWriteDeadline(time.Time{})
	}
	logrus.WithFields(logrus.Fields{
		"function": "WSConn.Send",
		"package":  "transport",
		"bytes":    len(msg),
	}).Debug("sending envelope")
	return w.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// Receive reads one binary message, honoring ctx's deadline if set.
func (w *WSConn) Receive(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		w.conn.SetReadDeadline(deadline)
	} else {
		w.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: receive: %w", err)
	}
	return data, nil
}

// Close closes the underlying websocket connection.
func (w *WSConn) Close() error {
	return w.conn.Close()
}
