package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HandlerFunc runs the whole protocol pipeline for one connection. The
// server closes the socket when it returns.
type HandlerFunc func(conn *Conn)

// Server accepts TCP connections and runs each one on its own goroutine.
type Server struct {
	listener    net.Listener
	nextID      atomic.Uint64
	readTimeout time.Duration
	hideAddrs   bool
	log         *zap.Logger
	wg          sync.WaitGroup
}

// NewServer binds the listening socket. A bind failure is returned as is;
// the caller treats it as fatal.
func NewServer(bindAddr string, readTimeout time.Duration, hideAddrs bool, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", bindAddr, err)
	}
	return &Server{
		listener:    ln,
		readTimeout: readTimeout,
		hideAddrs:   hideAddrs,
		log:         log,
	}, nil
}

// Serve accepts connections until ctx is cancelled, Close is called or
// Accept fails. Shutdown returns nil; any other accept failure is returned
// and is fatal to the server. Connection goroutines keep running after Serve
// returns; use Wait to join them.
func (s *Server) Serve(ctx context.Context, handle HandlerFunc) error {
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	for {
		raw, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept connection: %w", err)
		}

		id := s.nextID.Add(1)
		if tcp, ok := raw.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				s.log.Error("Failed to initialize connection", zap.Uint64("conn", id), zap.Error(err))
				raw.Close()
				continue
			}
		}

		conn := NewConn(raw, id, s.readTimeout, s.hideAddrs, s.log)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer raw.Close()
			handle(conn)
		}()
	}
}

// Wait blocks until every connection goroutine has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
