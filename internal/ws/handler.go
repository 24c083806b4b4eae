// Package ws serves STOMP 1.2 over WebSocket for the relay: viewers
// SUBSCRIBE to a match topic and receive deltas, the scorer SENDs commands.
package ws

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/hub"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	HeartBeat      time.Duration // offered in both directions; 0 disables
	WriteTimeout   time.Duration
	ConnectTimeout time.Duration
	OutboxSize     int
	Logger         *zap.Logger
	Metrics        metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 32
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	var active atomic.Int64

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols: types.Subprotocols,
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		if opts.Metrics != nil {
			opts.Metrics.SetActiveConnections(int(active.Add(1)))
			defer func() { opts.Metrics.SetActiveConnections(int(active.Add(-1))) }()
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		nc := websocket.NetConn(ctx, conn, websocket.MessageText)
		s := &stompSession{
			id:     uuid.NewString(),
			hub:    h,
			opts:   opts,
			reader: frame.NewReader(nc),
			writer: frame.NewWriter(nc),
			nc:     nc,
			out:    make(chan outbound, 16),
			subs:   make(map[string]*subscription),
			cancel: cancel,
		}
		s.log = opts.Logger.With(zap.String("session", s.id), zap.String("remote", r.RemoteAddr))

		if err := s.serve(ctx); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			s.log.Debug("stomp session ended", zap.Error(err))
		}
	}
}
