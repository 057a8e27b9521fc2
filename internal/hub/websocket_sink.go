package hub

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"staybid/internal/domain"
)

var (
	errSinkClosed     = errors.New("sink closed")
	errSinkBacklogged = errors.New("sink queue full")
)

const (
	defaultQueueSize    = 32
	defaultWriteTimeout = 5 * time.Second
)

// WebSocketSink adapts a gorilla connection to the hub's Sink contract. All
// writes go through a bounded outbound queue drained by a single writer
// goroutine; a full queue fails the push instead of blocking the
// broadcaster.
type WebSocketSink struct {
	conn         *websocket.Conn
	out          chan *domain.AuctionEvent
	quit         chan struct{}
	quitOnce     sync.Once
	closed       atomic.Bool
	writeTimeout time.Duration
}

func NewWebSocketSink(conn *websocket.Conn, queueSize int, writeTimeout time.Duration) *WebSocketSink {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	s := &WebSocketSink{
		conn:         conn,
		out:          make(chan *domain.AuctionEvent, queueSize),
		quit:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	go s.writePump()
	return s
}

func (s *WebSocketSink) Push(event *domain.AuctionEvent) error {
	if s.closed.Load() {
		return errSinkClosed
	}
	select {
	case s.out <- event:
		return nil
	case <-s.quit:
		return errSinkClosed
	default:
		return errSinkBacklogged
	}
}

func (s *WebSocketSink) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })
	return nil
}

func (s *WebSocketSink) Closed() bool {
	return s.closed.Load()
}

func (s *WebSocketSink) writePump() {
	defer func() {
		s.closed.Store(true)
		s.conn.Close()
	}()

	for {
		select {
		case event := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteJSON(event); err != nil {
				return
			}
		case <-s.quit:
			return
		}
	}
}

// MarkClosed lets the read pump flag the transport dead as soon as a read
// fails, without waiting for a write to notice.
func (s *WebSocketSink) MarkClosed() {
	s.closed.Store(true)
	s.Close()
}
