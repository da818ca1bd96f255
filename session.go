package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	errSessionClosed = errors.New("session closed")
	errSendFull      = errors.New("send queue full")
	errReplyBusy     = errors.New("reply already in flight")
	errReplyTimeout  = errors.New("reply timeout")
)

type sessionKind int

const (
	kindSingle sessionKind = iota
	kindBroadcast
)

func (k sessionKind) String() string {
	if k == kindSingle {
		return "single"
	}
	return "broadcast"
}

// frame pairs a payload with its websocket message type so that the
// text/binary variant chosen at publish time survives to the wire.
type frame struct {
	messageType int
	data        []byte
}

// session owns one live websocket. A writer goroutine is the only
// writer to the socket; a reader goroutine is the only reader. The
// send queue is bounded and enqueues never block.
type session struct {
	id     string
	connID string
	kind   sessionKind
	w      websocketManager

	send  chan frame
	done  chan struct{}
	ticks *tickerSub

	mu      sync.Mutex
	pending chan frame

	hb      *heartbeats
	once    sync.Once
	onClose func()
}

func newSession(id string, kind sessionKind, w websocketManager, hb *heartbeats, queue int, connID string) *session {
	return &session{
		id:     id,
		connID: connID,
		kind:   kind,
		w:      w,
		send:   make(chan frame, queue),
		done:   make(chan struct{}),
		ticks:  hb.subscribe(),
		hb:     hb,
	}
}

// run starts the writer and blocks in the reader until the socket dies.
func (s *session) run() {
	incr("websockets", 1)
	defer decr("websockets", 1)
	go s.writer()
	s.reader()
}

// writer drains the send queue and emits protocol pings on heartbeat
// ticks. Exclusive owner of the socket write half.
func (s *session) writer() {
	defer s.teardown()
	for {
		select {
		case f := <-s.send:
			s.w.wsSetWriteDeadline()
			if err := s.w.wsWriteMessage(f.messageType, f.data); err != nil {
				logger.Debug().Err(err).Str("id", s.id).Str("conn", s.connID).Msg("websocket write failed")
				return
			}
			incr("conn.send", 1)
		case _, ok := <-s.ticks.c:
			if !ok {
				return
			}
			s.w.wsSetWriteDeadline()
			if err := s.w.wsWriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// reader consumes inbound frames. Pongs refresh the read deadline via
// the pong handler; a silent peer trips the deadline and ends the read.
func (s *session) reader() {
	defer s.teardown()
	s.w.wsSetReadLimit()
	s.w.wsSetReadDeadline()
	s.w.wsSetPongHandler()
	for {
		mt, data, err := s.w.wsReadMessage()
		if err != nil {
			return
		}
		incr("conn.recv", 1)
		if s.kind == kindSingle {
			// The only expected client traffic: a reply to an
			// outstanding ping-pong publish. Anything else
			// (heartbeat tokens included) is consumed silently.
			s.fulfill(frame{mt, data})
		}
	}
}

func (s *session) fulfill(f frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending <- f
		s.pending = nil
	}
}

// trySend enqueues without blocking. errSendFull means the subscriber
// is not draining; the caller drops it.
func (s *session) trySend(f frame) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- f:
		return nil
	default:
		return errSendFull
	}
}

// requestReply installs the one-shot reply slot, sends, and waits for
// the subscriber's next inbound frame. At most one waiter per session.
func (s *session) requestReply(ctx context.Context, f frame, timeout time.Duration) (frame, error) {
	reply := make(chan frame, 1)
	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return frame{}, errReplyBusy
	}
	s.pending = reply
	s.mu.Unlock()

	if err := s.trySend(f); err != nil {
		s.uninstall(reply)
		return frame{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r, ok := <-reply:
		if !ok {
			return frame{}, errSessionClosed
		}
		return r, nil
	case <-timer.C:
		// A reply arriving after this point finds no waiter and
		// is discarded by fulfill.
		s.uninstall(reply)
		return frame{}, errReplyTimeout
	case <-ctx.Done():
		s.uninstall(reply)
		return frame{}, ctx.Err()
	}
}

func (s *session) uninstall(reply chan frame) {
	s.mu.Lock()
	if s.pending == reply {
		s.pending = nil
	}
	s.mu.Unlock()
}

// teardown converges the pipeline: closes the socket, wakes the writer,
// resolves any waiter as closed, and removes the registry entry.
// Safe to call from any task, any number of times.
func (s *session) teardown() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.pending != nil {
			close(s.pending)
			s.pending = nil
		}
		s.mu.Unlock()
		s.hb.unsubscribe(s.ticks)
		s.w.wsClose()
		if s.onClose != nil {
			s.onClose()
		}
		logger.Info().Str("id", s.id).Str("conn", s.connID).Str("kind", s.kind.String()).Msg("subscriber disconnected")
	})
}

func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
