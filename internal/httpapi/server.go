package httpapi

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"userCrudAPI/internal/config"
)

const maxAcceptDelay = time.Second

// Server accepts connections and answers exactly one request on each.
type Server struct {
	cfg      config.HTTPConfig
	router   *Router
	errorLog *log.Logger
	wg       sync.WaitGroup
}

// NewServer returns a server dispatching through router. A nil errorLog uses the
// standard logger.
func NewServer(cfg config.HTTPConfig, router *Router, errorLog *log.Logger) *Server {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 1024
	}
	if errorLog == nil {
		errorLog = log.Default()
	}
	return &Server{cfg: cfg, router: router, errorLog: errorLog}
}

// Listen binds the configured TCP address.
func Listen(cfg config.HTTPConfig) (net.Listener, error) {
	return net.Listen("tcp", cfg.Address)
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := Listen(s.cfg)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or ln is closed.
// Unless the server is concurrent, each connection is fully handled before the
// next Accept. Accept errors are logged and do not stop the loop. Serve closes ln
// and waits for in-flight connections before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	// Requests already accepted are finished even after shutdown begins.
	reqCtx := context.WithoutCancel(ctx)

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(delay*2, maxAcceptDelay)
			}
			s.errorLog.Printf("accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		if s.cfg.Concurrent {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConn(reqCtx, conn)
			}()
			continue
		}
		s.handleConn(reqCtx, conn)
	}
}

// handleConn reads a single buffer, routes it and writes the response. Requests
// longer than the buffer are truncated. The connection is closed on return.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	id := uuid.NewString()

	buf := make([]byte, s.cfg.ReadBufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil {
			s.errorLog.Printf("conn %s from %s: read error: %v", id, conn.RemoteAddr(), err)
		}
		return
	}

	req := decodeRequest(buf[:n])
	resp := s.router.Dispatch(ctx, req)

	if _, err := conn.Write(resp.Bytes()); err != nil {
		s.errorLog.Printf("conn %s from %s: write error: %v", id, conn.RemoteAddr(), err)
		return
	}
	s.errorLog.Printf("conn %s %q -> %q", id, firstLine(req.Raw), firstLine(resp.Status))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\r\n")
	return line
}
