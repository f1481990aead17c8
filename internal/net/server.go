package net

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emberfall/server/internal/config"
)

// Server upgrades HTTP connections to websockets and creates Sessions.
// New/dead sessions are communicated to the game loop via channels.
type Server struct {
	httpSrv  *http.Server
	upgrader websocket.Upgrader
	cfg      *config.NetworkConfig
	// Per-session read rate limit, messages/sec.
	maxMsgsPerSec int
	nextID        atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	stats    atomic.Pointer[[]byte]
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(cfg *config.NetworkConfig, maxMsgsPerSec int, log *zap.Logger) *Server {
	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; auth is a
			// deployment concern handled upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		maxMsgsPerSec: maxMsgsPerSec,
		newConns:      make(chan *Session, 64),
		deadCh:        make(chan uint64, 64),
		log:           log,
		closeCh:       make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/stats", s.handleStats)
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	return s
}

// Serve blocks on the HTTP listener until Shutdown.
func (s *Server) Serve() error {
	s.log.Info("listening", zap.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := NewSession(conn, id,
		s.cfg.InQueueSize, s.cfg.OutQueueSize, s.maxMsgsPerSec,
		s.cfg.ReadTimeout, s.cfg.WriteTimeout, s.cfg.MaxMessageBytes, s.log)
	sess.Start()

	// Report the eventual death to the game loop.
	go func() {
		<-sess.Done()
		s.NotifyDead(sess.ID)
	}()

	s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting")
		sess.Close()
	}
}

// handleStats serves the most recent stats snapshot published by the game
// loop. Read-only; never touches live state.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.stats.Load()
	if snap == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(*snap)
}

// PublishStats stores a JSON stats snapshot for /debug/stats. Called from
// the game loop.
func (s *Server) PublishStats(snapshot []byte) {
	s.stats.Store(&snapshot)
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop. A lost death
// notification strands the session's player in the world, so the send
// blocks until delivered; the caller is the per-session waiter goroutine,
// never the game loop.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	case <-s.closeCh:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting new connections and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.closeCh)
	return s.httpSrv.Shutdown(ctx)
}
