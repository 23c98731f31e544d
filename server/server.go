package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/monitor"
	"github.com/floriandheer/ordermon/state"
)

// Server is the local HTTP control surface for a running monitor.
type Server struct {
	monitor *monitor.Monitor
	store   state.Store
	hub     *ActivityHub

	httpServer *http.Server
	baseCtx    context.Context
	log        *zap.SugaredLogger
}

// New wires the control server. hub must be the same hub the monitor
// broadcasts to.
func New(mon *monitor.Monitor, store state.Store, hub *ActivityHub, cfg config.ServerConfig, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = logger.Logger
	}

	s := &Server{
		monitor: mon,
		store:   store,
		hub:     hub,
		log:     log,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.ServerPort()),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins serving. ctx becomes the base context for monitor starts
// issued through the API. Start returns once the listener goroutine is
// launched; startup failures surface on the returned channel.
func (s *Server) Start(ctx context.Context) <-chan error {
	s.baseCtx = ctx
	errCh := make(chan error, 1)

	go func() {
		s.log.Infow("Control server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh
}

// Shutdown drains HTTP connections and drops websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address, for logging and tests.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/monitor/start", s.handleStart)
	mux.HandleFunc("/api/monitor/stop", s.handleStop)
	mux.HandleFunc("/api/monitor/check", s.handleCheck)
	mux.HandleFunc("/api/processed", s.handleProcessed)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}
