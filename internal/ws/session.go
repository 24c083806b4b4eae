package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/engine"
	"github.com/DoyleJ11/cricket-live/internal/hub"
	"github.com/DoyleJ11/cricket-live/internal/room"
	itypes "github.com/DoyleJ11/cricket-live/internal/types"
	"github.com/DoyleJ11/cricket-live/pkg/types"
	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const contentTypeJSON = "application/json"

var errProtocol = errors.New("stomp protocol error")

// outbound is one item for the writer. last ends the session once written.
type outbound struct {
	f    *frame.Frame
	last bool
}

type subscription struct {
	id       string
	clientID string
	room     *room.Room
	outbox   chan itypes.Delta
	stop     chan struct{}
}

type stompSession struct {
	id     string
	hub    *hub.Hub
	opts   Options
	log    *zap.Logger
	nc     net.Conn
	reader *frame.Reader
	writer *frame.Writer
	out    chan outbound
	subs   map[string]*subscription // reader goroutine only
	cancel context.CancelFunc

	sendEvery time.Duration
	recvEvery time.Duration
}

func (s *stompSession) serve(ctx context.Context) error {
	if err := s.connect(); err != nil {
		return err
	}
	defer s.leaveAll()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer s.cancel()
		return s.writeLoop(gctx)
	})
	g.Go(func() error { return s.readLoop(gctx, g) })
	return g.Wait()
}

// connect handles the CONNECT/CONNECTED exchange before the loops start.
func (s *stompSession) connect() error {
	_ = s.nc.SetReadDeadline(time.Now().Add(s.opts.ConnectTimeout))
	f, err := s.reader.Read()
	if err != nil {
		return err
	}
	if f == nil || (f.Command != frame.CONNECT && f.Command != frame.STOMP) {
		_ = s.writeNow(errorFrame("expected CONNECT", ""))
		return errProtocol
	}

	version, ok := negotiateVersion(f.Header.Get(frame.AcceptVersion))
	if !ok {
		_ = s.writeNow(errorFrame("supported protocol versions are 1.0, 1.1, 1.2", ""))
		return errProtocol
	}

	if hb := f.Header.Get(frame.HeartBeat); hb != "" && version != "1.0" {
		cx, cy, err := frame.ParseHeartBeat(hb)
		if err != nil {
			_ = s.writeNow(errorFrame("invalid heart-beat header", ""))
			return errProtocol
		}
		s.sendEvery = negotiate(s.opts.HeartBeat, cy)
		s.recvEvery = negotiate(s.opts.HeartBeat, cx)
	}

	ms := strconv.FormatInt(s.opts.HeartBeat.Milliseconds(), 10)
	connected := frame.New(frame.CONNECTED,
		frame.Version, version,
		frame.HeartBeat, ms+","+ms,
		"server", "cricket-relay/1",
		"session", s.id,
	)
	return s.writeNow(connected)
}

func (s *stompSession) writeNow(f *frame.Frame) error {
	_ = s.nc.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return s.writer.Write(f)
}

func (s *stompSession) writeLoop(ctx context.Context) error {
	var tick <-chan time.Time
	if s.sendEvery > 0 {
		t := time.NewTicker(s.sendEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case item := <-s.out:
			if item.f != nil {
				if err := s.writeNow(item.f); err != nil {
					return err
				}
			}
			if item.last {
				return nil
			}

		case <-tick:
			if err := s.writeNow(nil); err != nil { // nil frame is a heart-beat
				return err
			}
		}
	}
}

func (s *stompSession) enqueue(ctx context.Context, item outbound) bool {
	select {
	case s.out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// fail reports a protocol error to the peer and ends the session.
func (s *stompSession) fail(ctx context.Context, msg, receipt string) {
	s.enqueue(ctx, outbound{f: errorFrame(msg, receipt), last: true})
}

func (s *stompSession) readLoop(ctx context.Context, g *errgroup.Group) error {
	graceful := false
	defer func() {
		if !graceful {
			s.cancel()
		}
	}()

	for {
		if s.recvEvery > 0 {
			_ = s.nc.SetReadDeadline(time.Now().Add(2 * s.recvEvery))
		} else {
			_ = s.nc.SetReadDeadline(time.Time{})
		}

		f, err := s.reader.Read()
		if err != nil {
			return err
		}
		if f == nil {
			continue // heart-beat
		}

		receipt := f.Header.Get(frame.Receipt)
		switch f.Command {
		case frame.SUBSCRIBE:
			if msg := s.subscribe(ctx, g, f); msg != "" {
				s.fail(ctx, msg, receipt)
				graceful = true
				return nil
			}

		case frame.UNSUBSCRIBE:
			s.unsubscribe(ctx, f.Header.Get(frame.Id))

		case frame.SEND:
			if msg := s.send(ctx, f); msg != "" {
				s.fail(ctx, msg, receipt)
				graceful = true
				return nil
			}

		case frame.DISCONNECT:
			var rf *frame.Frame
			if receipt != "" {
				rf = frame.New(frame.RECEIPT, frame.ReceiptId, receipt)
			}
			s.enqueue(ctx, outbound{f: rf, last: true})
			graceful = true
			return nil

		case frame.ACK, frame.NACK, frame.BEGIN, frame.COMMIT, frame.ABORT:
			// subscriptions are auto-ack and there are no transactions

		default:
			s.fail(ctx, "unexpected "+f.Command+" frame", receipt)
			graceful = true
			return nil
		}

		if receipt != "" {
			s.enqueue(ctx, outbound{f: frame.New(frame.RECEIPT, frame.ReceiptId, receipt)})
		}
	}
}

// subscribe returns a message for the peer on failure.
func (s *stompSession) subscribe(ctx context.Context, g *errgroup.Group, f *frame.Frame) string {
	dest := f.Header.Get(frame.Destination)
	id := f.Header.Get(frame.Id)
	if id == "" {
		id = dest // 1.0 clients may omit it
	}
	matchID, ok := types.ParseMatchTopic(dest)
	if !ok {
		return "unknown destination " + dest
	}
	if _, dup := s.subs[id]; dup {
		return "duplicate subscription id " + id
	}

	rm, err := s.hub.Lookup(ctx, matchID)
	if err != nil {
		return err.Error()
	}

	sub := &subscription{
		id:       id,
		clientID: s.id + "/" + id,
		room:     rm,
		outbox:   make(chan itypes.Delta, s.opts.OutboxSize),
		stop:     make(chan struct{}),
	}
	select {
	case rm.Inbox() <- room.Join{ClientID: sub.clientID, Outbox: sub.outbox}:
	case <-rm.Done():
		return "match closed"
	case <-ctx.Done():
		return "shutting down"
	}
	s.subs[id] = sub
	s.log.Debug("subscribed", zap.String("match_id", matchID), zap.String("sub", id))

	g.Go(func() error { return s.forward(ctx, sub) })
	return ""
}

func (s *stompSession) unsubscribe(ctx context.Context, id string) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(sub.stop)
	s.leave(ctx, sub)
}

func (s *stompSession) leave(ctx context.Context, sub *subscription) {
	select {
	case sub.room.Inbox() <- room.Leave{ClientID: sub.clientID}:
	case <-sub.room.Done():
	case <-ctx.Done():
	}
}

func (s *stompSession) leaveAll() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for id, sub := range s.subs {
		s.leave(ctx, sub)
		delete(s.subs, id)
	}
}

// forward turns room deltas into MESSAGE frames for one subscription.
func (s *stompSession) forward(ctx context.Context, sub *subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.stop:
			return nil
		case d, ok := <-sub.outbox:
			if !ok {
				// dropped as a slow subscriber or the room stopped
				s.fail(ctx, "subscription "+sub.id+" closed by server", "")
				return nil
			}
			body, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encode delta %d: %w", d.Seq, err)
			}
			msg := frame.New(frame.MESSAGE,
				frame.Destination, types.MatchTopic(d.MatchID),
				frame.Subscription, sub.id,
				frame.MessageId, uuid.NewString(),
				frame.ContentType, contentTypeJSON,
				frame.ContentLength, strconv.Itoa(len(body)),
			)
			msg.Body = body
			if !s.enqueue(ctx, outbound{f: msg}) {
				return nil
			}
		}
	}
}

// send applies a scoring command and returns a message for the peer on failure.
func (s *stompSession) send(ctx context.Context, f *frame.Frame) string {
	dest := f.Header.Get(frame.Destination)
	matchID, ok := types.ParseScoreDestination(dest)
	if !ok {
		return "unknown destination " + dest
	}
	cmd, err := decodeCommand(f.Body)
	if err != nil {
		return err.Error()
	}
	rm, err := s.hub.Lookup(ctx, matchID)
	if err != nil {
		return err.Error()
	}

	reply := make(chan room.Result, 1)
	select {
	case rm.Inbox() <- room.FromClient{ClientID: s.id, Cmd: cmd, Reply: reply}:
	case <-rm.Done():
		return "match closed"
	case <-ctx.Done():
		return "shutting down"
	}
	select {
	case res := <-reply:
		if res.Err != nil {
			return res.Err.Error()
		}
		return ""
	case <-ctx.Done():
		return "shutting down"
	}
}

func decodeCommand(body []byte) (engine.Command, error) {
	var cmd engine.Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return engine.Command{}, errors.New("bad json")
	}
	if cmd.Type == "" {
		return engine.Command{}, errors.New("missing command type")
	}
	return cmd, nil
}

func errorFrame(msg, receipt string) *frame.Frame {
	body, _ := json.Marshal(itypes.ErrorMessage{Error: msg})
	f := frame.New(frame.ERROR,
		frame.Message, msg,
		frame.ContentType, contentTypeJSON,
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	if receipt != "" {
		f.Header.Set(frame.ReceiptId, receipt)
	}
	f.Body = body
	return f
}

// negotiateVersion picks the newest version both sides speak.
func negotiateVersion(accept string) (string, bool) {
	if accept == "" {
		return "1.0", true
	}
	offered := strings.Split(accept, ",")
	for _, v := range []string{"1.2", "1.1", "1.0"} {
		for _, o := range offered {
			if strings.TrimSpace(o) == v {
				return v, true
			}
		}
	}
	return "", false
}

// negotiate returns the agreed heart-beat period: zero if either side
// declines, otherwise the larger of the two.
func negotiate(ours, theirs time.Duration) time.Duration {
	if ours <= 0 || theirs <= 0 {
		return 0
	}
	return max(ours, theirs)
}
