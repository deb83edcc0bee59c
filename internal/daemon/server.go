package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corebridge/corebridge/internal/core"
	"github.com/corebridge/corebridge/internal/metrics"
)

// requestReadTimeout bounds how long a connection may take to send its
// request. Core calls themselves are not bounded.
const requestReadTimeout = 10 * time.Second

// Handler is implemented by the daemon to respond to lifecycle requests.
type Handler interface {
	HandleStatus() *DaemonStatus
	HandleShutdown()
}

// Server listens on a Unix socket and dispatches requests to a Handler and
// a core.
type Server struct {
	sockPath string
	handler  Handler
	core     core.Core
	logger   core.Logger
	metrics  *metrics.Metrics
	listener net.Listener
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics counts handled core requests.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithLogger is the logger passed to core.start.
func WithLogger(l core.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new IPC server.
func NewServer(sockPath string, handler Handler, c core.Core, opts ...ServerOption) *Server {
	s := &Server{sockPath: sockPath, handler: handler, core: c, logger: core.Discard}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins accepting connections in the background.
func (s *Server) Start() error {
	// Remove stale socket file if it exists.
	_ = os.Remove(s.sockPath)

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.sockPath, err)
	}
	if err := os.Chmod(s.sockPath, 0600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return // listener closed
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handle(conn)
			}()
		}
	}()
	return nil
}

// Stop closes the listener, waits for in-flight requests and removes the
// socket file.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.sockPath)
}

func (s *Server) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(Response{OK: false, Error: "invalid request"})
		return
	}

	if req.Method == MethodShutdown {
		_ = json.NewEncoder(conn).Encode(Response{ID: req.ID, OK: true})
		s.handler.HandleShutdown()
		return
	}

	resp := s.dispatch(req)
	resp.ID = req.ID
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) dispatch(req Request) Response {
	switch req.Method {
	case MethodStatus:
		return Response{OK: true, State: s.handler.HandleStatus()}
	case MethodBotRunning:
		// Never fails.
		return Response{OK: true, Running: s.core.IsBotRunning()}
	case MethodStart:
		return s.coreCall(req.Method, func(r *Response) error {
			return s.core.Start(req.Path, s.logger)
		})
	case MethodRestart:
		return s.coreCall(req.Method, func(r *Response) error {
			return s.core.Restart(req.Path)
		})
	case MethodDropDatabase:
		return s.coreCall(req.Method, func(r *Response) error {
			return s.core.DropDatabase(req.Path)
		})
	case MethodPort:
		return s.coreCall(req.Method, func(r *Response) (err error) {
			r.Port, err = s.core.GetPort()
			return err
		})
	case MethodGetNetworkConfig:
		return s.coreCall(req.Method, func(r *Response) (err error) {
			r.Config, err = s.core.GetNetworkConfig()
			return err
		})
	case MethodUpdateNetworkConfig:
		return s.coreCall(req.Method, func(r *Response) error {
			return s.core.UpdateNetworkConfig(req.Config)
		})
	case MethodStartBot:
		return s.coreCall(req.Method, func(r *Response) error {
			return s.core.StartBot()
		})
	case MethodStopBot:
		return s.coreCall(req.Method, func(r *Response) error {
			return s.core.StopBot()
		})
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) coreCall(method string, fn func(*Response) error) Response {
	began := time.Now()
	var resp Response
	err := fn(&resp)
	s.metrics.Observe(method, err, time.Since(began))
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	resp.OK = true
	return resp
}
