// Package server implements the network surface of the store: a TCP
// listener speaking the line protocol, an HTTP admin surface for metrics
// and merge control, and an optional background merge ticker.
//
// The key-value listener follows a one-shot exchange: a client opens a
// connection, writes one request line, reads one response line, and the
// connection is closed. Each accepted connection is handled on its own
// goroutine; the engine below serializes what must be serialized.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/androidarduino/vrdb/lib/engine"
	"github.com/androidarduino/vrdb/wire/protocol"
)

// Server accepts client connections and dispatches requests to the
// engine.
type Server struct {
	config Config
	engine *engine.Engine
	logger *zap.Logger
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server over the given engine.
//
// Usage:
//
//	s := server.New(*cfg, eng, logger)
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func New(config Config, eng *engine.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config: config,
		engine: eng,
		logger: logger.Named("server"),
	}
}

// Serve listens on the configured endpoints and blocks until ctx is
// cancelled. On return the listener is closed, in-flight connections have
// drained and the engine has been closed (flushing the active buffer).
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("endpoint", s.config.Endpoint))

	if s.config.AdminEndpoint != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveAdmin(ctx)
		}()
	}
	if s.config.MergeIntervalSec > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.mergeLoop(ctx)
		}()
	}

	// Close the listener when the context ends so Accept unblocks.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Error("accept error", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}

	s.wg.Wait()
	return s.engine.Close()
}

// Addr returns the address the key-value listener is bound to. Only valid
// after Serve has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// handleConnection serves exactly one request on conn.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if s.config.TimeoutSecond > 0 {
		deadline := time.Now().Add(time.Duration(s.config.TimeoutSecond) * time.Second)
		if err := conn.SetDeadline(deadline); err != nil {
			s.logger.Error("failed to set deadline", zap.Error(err))
			return
		}
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		s.logger.Debug("connection closed without request", zap.Error(err))
		return
	}
	line = strings.TrimRight(line, "\r\n")

	resp := s.handle(protocol.ParseRequest(line))

	if _, err := conn.Write([]byte(resp.String() + "\n")); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}

// handle dispatches one parsed request to the engine.
func (s *Server) handle(req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.TypePut:
		if err := s.engine.Put(req.Key, req.Value); err != nil {
			s.logger.Error("put failed", zap.String("key", req.Key), zap.Error(err))
			return protocol.NewErrorResponse(err.Error())
		}
		return protocol.NewOKResponse()
	case protocol.TypeGet:
		value, found := s.engine.Get(req.Key)
		if !found {
			return protocol.NewNotFoundResponse(req.Key)
		}
		return protocol.NewValueResponse(value)
	default:
		return protocol.NewErrorResponse("Unknown request type")
	}
}

// --------------------------------------------------------------------------
// Background Merge
// --------------------------------------------------------------------------

// mergeLoop periodically launches a merge. A tick that arrives while a
// merge is still running is skipped.
func (s *Server) mergeLoop(ctx context.Context) {
	interval := time.Duration(s.config.MergeIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.engine.Merge(); err != nil && !errors.Is(err, engine.ErrMergeInProgress) {
				s.logger.Error("background merge failed", zap.Error(err))
			}
		}
	}
}
