package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shibudb.org/shibuvec/internal/config"
	"github.com/shibudb.org/shibuvec/internal/queryengine"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

const (
	monitorInterval = 30 * time.Second
	signalLimitStep = 100
)

// Server owns the store for the life of the process and serves the text
// protocol, one goroutine per connection.
type Server struct {
	cfg         *config.Config
	store       storage.VectorEngine
	qe          *queryengine.QueryEngine
	logger      *slog.Logger
	connManager *ConnectionManager
	limitStore  *LimitStore

	sessions sync.WaitGroup
}

func NewServer(cfg *config.Config, store storage.VectorEngine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:        cfg,
		store:      store,
		qe:         queryengine.NewQueryEngine(store, logger),
		logger:     logger,
		limitStore: NewLimitStore(cfg.StateDir),
	}

	limit, err := s.limitStore.Resolve(cfg.MaxConnections)
	if err != nil {
		logger.Warn("failed to load persisted connection limit", "error", err)
	}
	if limit != cfg.MaxConnections {
		logger.Info("using persisted connection limit", "limit", limit, "configured", cfg.MaxConnections)
	}
	s.connManager = NewConnectionManager(limit, s.onLimitChange)
	return s
}

func (s *Server) ConnectionManager() *ConnectionManager {
	return s.connManager
}

func (s *Server) onLimitChange(oldLimit, newLimit int32) {
	s.logger.Info("connection limit updated", "old", oldLimit, "new", newLimit,
		"active", s.connManager.GetActiveConnections())
	if err := s.limitStore.Save(newLimit); err != nil {
		s.logger.Warn("failed to save connection limit", "error", err)
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then closes the
// listener and every open session and waits for them to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	s.logger.Info("ShibuVec server started", "addr", listener.Addr().String(),
		"max_connections", s.connManager.GetMaxConnections())

	g.Go(func() error {
		<-ctx.Done()
		listener.Close()
		s.connManager.CloseAllConnections()
		return nil
	})
	g.Go(func() error {
		return s.acceptLoop(ctx, listener)
	})

	if port := s.cfg.ResolvedManagementPort(); port >= 0 {
		mgmt := NewManagementServer(s.connManager, s.store, net.JoinHostPort(s.cfg.Host, strconv.Itoa(port)), s.logger)
		g.Go(func() error {
			return mgmt.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return mgmt.Stop(shutdownCtx)
		})
	}

	g.Go(func() error {
		s.handleSignals(ctx)
		return nil
	})
	g.Go(func() error {
		s.monitorConnections(ctx)
		return nil
	})

	err := g.Wait()
	s.sessions.Wait()
	s.logger.Info("ShibuVec server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("failed to accept client", "error", err)
			continue
		}

		if ctx.Err() != nil {
			conn.Close()
			return nil
		}

		if !s.connManager.TryAcquire(conn) {
			s.logger.Warn("connection limit reached, rejecting",
				"remote", conn.RemoteAddr().String(),
				"active", s.connManager.GetActiveConnections(),
				"max", s.connManager.GetMaxConnections())
			fmt.Fprintf(conn, "Error: Server at maximum capacity (%d connections). Please try again later.\n",
				s.connManager.GetMaxConnections())
			conn.Close()
			continue
		}

		s.logger.Info("new connection", "remote", conn.RemoteAddr().String(),
			"active", s.connManager.GetActiveConnections())

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			defer func() {
				conn.Close()
				s.connManager.Release(conn)
				s.logger.Info("connection closed", "remote", conn.RemoteAddr().String(),
					"active", s.connManager.GetActiveConnections())
			}()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleSignals applies runtime limit updates: SIGUSR1 raises the limit by
// 100, SIGUSR2 lowers it by 100 but never below the active count.
func (s *Server) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			s.applySignal(sig)
		}
	}
}

func (s *Server) applySignal(sig os.Signal) {
	current := s.connManager.GetMaxConnections()
	newLimit := current + signalLimitStep
	if sig == syscall.SIGUSR2 {
		newLimit = current - signalLimitStep
		if active := s.connManager.GetActiveConnections(); newLimit < active || newLimit <= 0 {
			s.logger.Warn("cannot decrease connection limit", "active", active, "limit", current)
			return
		}
	}
	if err := s.connManager.UpdateLimit(newLimit); err != nil {
		s.logger.Warn("failed to update connection limit", "error", err)
	}
}

// monitorConnections periodically logs connection usage.
func (s *Server) monitorConnections(ctx context.Context) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.connManager.GetConnectionStats()
			usage := stats["usage_percentage"].(float64)
			attrs := []any{
				"active", stats["active_connections"],
				"max", stats["max_connections"],
				"usage_percent", fmt.Sprintf("%.1f", usage),
				"vectors", s.store.Len(),
			}
			if usage > 80 {
				s.logger.Warn("high connection usage", attrs...)
			} else {
				s.logger.Info("connection status", attrs...)
			}
		}
	}
}
