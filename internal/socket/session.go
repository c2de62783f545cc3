// Package socket owns the transient websocket connection serving one
// question/answer exchange. A Session is opened with Dial, which transmits
// exactly one request frame, then feeds decoded inbound frames to a single
// event channel in strict arrival order. The channel closes when the
// connection ends, however it ends; a close initiated locally through Close
// is never reported as an error.
package socket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lexibot/lexibot-go/internal/metrics"
	"github.com/lexibot/lexibot-go/pkg/wire"
)

const (
	writeTimeout = 10 * time.Second

	// readLimit caps a single inbound frame. End payloads carry full cited
	// source content, so the limit is generous.
	readLimit = 4 << 20
)

// Event is one item delivered by a Session. Exactly one of Frame and Err is
// set. An Err event is terminal: the channel closes immediately after it.
type Event struct {
	Frame wire.Frame
	Err   error
}

// Session is one live connection. It is not reused across questions.
type Session struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	log    *zap.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// Dial opens a connection to url, transmits the request frame, and starts
// the read pump. The caller owns the returned Session and must consume
// Events until the channel closes or call Close.
func Dial(ctx context.Context, url string, req *wire.Request, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	data, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding request frame: %w", err)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	conn.SetReadLimit(readLimit)

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transmitting request frame: %w", err)
	}

	metrics.ConnectionsOpened.Inc()
	log.Debug("connection opened", zap.String("url", url))

	s := &Session{
		conn:   conn,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
		log:    log,
	}
	go s.readPump()
	return s, nil
}

// Events returns the frame channel. Frames are delivered strictly in arrival
// order; the channel closes when the connection ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Close tears the connection down. It is idempotent and legal to call while
// the backend still holds its side open.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		deadline := time.Now().Add(writeTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()
		s.log.Debug("connection closed")
	})
	return err
}

// readPump reads frames until the connection ends and forwards them on the
// event channel. Noise frames are dropped here so consumers only ever see
// meaningful protocol traffic.
func (s *Session) readPump() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				// Locally initiated close, not a fault.
				return
			}
			s.log.Debug("connection ended", zap.Error(err))
			s.deliver(Event{Err: fmt.Errorf("connection closed: %w", err)})
			return
		}

		frame, ok, err := wire.Decode(data)
		if err != nil {
			// A terminal payload that does not decode leaves the session
			// unable to settle; surface it and stop.
			s.log.Warn("malformed terminal frame", zap.Error(err))
			s.deliver(Event{Err: err})
			return
		}
		if !ok {
			metrics.FramesIgnored.Inc()
			continue
		}

		metrics.FramesReceived.WithLabelValues(frame.Type()).Inc()
		if !s.deliver(Event{Frame: frame}) {
			return
		}
	}
}

// deliver sends ev unless the session is being closed. It reports whether
// the pump should keep running.
func (s *Session) deliver(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
