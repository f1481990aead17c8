package net

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/protocol"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn *websocket.Conn

	state atomic.Int32 // protocol.SessionState stored as int32

	InQueue  chan []byte // game loop reads messages from here
	OutQueue chan []byte // writer goroutine reads from here

	IP       string
	PlayerID string // set by the game loop on spawn, read only there

	// Reliable messages buffered this tick, flushed by the snapshot system
	// once per tick. Game loop only.
	outBuf [][]byte
	// Latest-wins slot for the per-tick state snapshot. A slow link skips
	// intermediate snapshots instead of queueing them.
	statePending []byte

	rttMs atomic.Int64 // client-reported round trip, ms

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second message rate limiter (readLoop goroutine only)
	msgPerSec  int
	msgCount   int
	msgResetAt int64

	readTimeout  time.Duration
	writeTimeout time.Duration

	log *zap.Logger
}

func NewSession(conn *websocket.Conn, id uint64, inSize, outSize, msgPerSec int,
	readTimeout, writeTimeout time.Duration, maxMessageBytes int64, log *zap.Logger) *Session {
	s := &Session{
		ID:           id,
		conn:         conn,
		InQueue:      make(chan []byte, inSize),
		OutQueue:     make(chan []byte, outSize),
		IP:           conn.RemoteAddr().String(),
		closeCh:      make(chan struct{}),
		msgPerSec:    msgPerSec,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		log:          log.With(zap.Uint64("session", id)),
	}
	conn.SetReadLimit(maxMessageBytes)
	s.state.Store(int32(protocol.StateLobby))
	return s
}

func (s *Session) State() protocol.SessionState {
	return protocol.SessionState(s.state.Load())
}

func (s *Session) SetState(st protocol.SessionState) {
	s.state.Store(int32(st))
}

// RTT returns the client-reported round trip in ms, zero until the first
// ping arrives.
func (s *Session) RTT() int64 {
	return s.rttMs.Load()
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Enqueue routes an outgoing message by its reliability class: reliable
// messages join the ordered per-tick buffer, best-effort ones take the
// latest-wins state slot. Called only from the game loop goroutine.
func (s *Session) Enqueue(msgType string, data []byte) {
	if protocol.Classify(msgType) == protocol.Reliable {
		s.Send(data)
	} else {
		s.SendState(data)
	}
}

// Send buffers a reliable message for this tick. It is not written to the
// socket until FlushOutput runs at the output phase.
// Called only from the game loop goroutine.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// SendState stores this tick's snapshot, replacing any unsent one. Snapshots
// are best-effort: only the newest matters.
// Called only from the game loop goroutine.
func (s *Session) SendState(data []byte) {
	if s.closed.Load() {
		return
	}
	s.statePending = data
}

// FlushOutput drains buffered messages to OutQueue for the writeLoop
// goroutine. Called once per tick at the output phase. Reliable messages
// that cannot be queued disconnect the session (backpressure); a snapshot
// that cannot be queued is dropped.
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow connection")
			s.Close()
			s.outBuf = s.outBuf[:0]
			s.statePending = nil
			return
		}
	}
	s.outBuf = s.outBuf[:0]

	if s.statePending != nil {
		select {
		case s.OutQueue <- s.statePending:
		default:
		}
		s.statePending = nil
	}
}

// Close shuts down the session. Safe to call from any goroutine, any number
// of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(protocol.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session shuts down, however that happened.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// readLoop reads frames from the websocket and pushes them onto InQueue for
// the game loop. Pings are answered here directly so the measured latency
// excludes tick scheduling.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		// Per-second message rate limiter
		if s.msgPerSec > 0 {
			now := time.Now().Unix()
			if now != s.msgResetAt {
				s.msgCount = 0
				s.msgResetAt = now
			}
			s.msgCount++
			if s.msgCount > s.msgPerSec {
				s.log.Warn("message rate exceeded, disconnecting", zap.Int("mps", s.msgCount))
				return
			}
		}

		if tag, err := protocol.PeekType(payload); err == nil && tag == protocol.CPing {
			s.handlePing(payload)
			continue
		}

		// Block until InQueue has space or the session closes. The readLoop
		// goroutine is per-session, so blocking only stalls this client; the
		// rate limiter above bounds how much can pile up.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// handlePing records the client-reported RTT and answers immediately on
// OutQueue, bypassing the per-tick buffer.
func (s *Session) handlePing(raw []byte) {
	var ping protocol.PingMsg
	if err := json.Unmarshal(raw, &ping); err != nil {
		return
	}
	if ping.RTT > 0 {
		s.rttMs.Store(ping.RTT)
	}
	pong, err := json.Marshal(protocol.PongMsg{
		Type:       protocol.SPong,
		Sequence:   ping.Sequence,
		ClientTime: ping.ClientTime,
		ServerTime: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	select {
	case s.OutQueue <- pong:
	default:
	}
}

// writeLoop reads messages from OutQueue and writes them to the websocket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			s.conn.SetWriteDeadline(time.Now().Add(time.Second))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
