package realtime

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/coder/websocket"
)

const readLimit = 1 << 20

// watchedConn closes lost the first time a read or write fails, so a
// channel can notice a dead stream without waiting on the STOMP layer.
type watchedConn struct {
	io.ReadWriteCloser
	once sync.Once
	lost chan struct{}
}

func watch(rwc io.ReadWriteCloser) *watchedConn {
	return &watchedConn{ReadWriteCloser: rwc, lost: make(chan struct{})}
}

func (w *watchedConn) Read(p []byte) (int, error) {
	n, err := w.ReadWriteCloser.Read(p)
	if err != nil {
		w.markLost()
	}
	return n, err
}

func (w *watchedConn) Write(p []byte) (int, error) {
	n, err := w.ReadWriteCloser.Write(p)
	if err != nil {
		w.markLost()
	}
	return n, err
}

func (w *watchedConn) markLost() { w.once.Do(func() { close(w.lost) }) }

func (w *watchedConn) isLost() bool {
	select {
	case <-w.lost:
		return true
	default:
		return false
	}
}

// netConn ties the WebSocket's lifetime to its own context so closing the
// stream also releases NetConn's background reader.
type netConn struct {
	net.Conn
	cancel context.CancelFunc
}

func (c *netConn) Close() error {
	err := c.Conn.Close()
	c.cancel()
	return err
}

func dialWebSocket(ctx context.Context, url, token string) (io.ReadWriteCloser, error) {
	opts := &websocket.DialOptions{Subprotocols: types.Subprotocols}
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)

	connCtx, cancel := context.WithCancel(context.Background())
	return &netConn{Conn: websocket.NetConn(connCtx, conn, websocket.MessageText), cancel: cancel}, nil
}
