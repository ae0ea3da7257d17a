package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dxta-dev/clankers/internal/logging"
	"github.com/dxta-dev/clankers/internal/store"
)

// drainTimeout bounds how long Stop waits for in-flight connections.
const drainTimeout = 2 * time.Second

type handlerFunc func(ctx context.Context, env Envelope, params json.RawMessage) (any, *Error)

// Server owns the local endpoint and dispatches JSON-RPC 2.0 requests to
// the store and logger. Requests on a single connection are handled in
// receipt order; distinct connections interleave arbitrarily.
type Server struct {
	store      *store.Store
	logger     *logging.Logger
	slog       *slog.Logger
	sockPath   string
	listener   net.Listener
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex // protects shutdown state
	shutdown   bool
	startTime  time.Time
	dbCreated  bool // whether this daemon created the database at startup
	handlers   map[string]handlerFunc
}

// SetDBCreated records whether startup created the database file; reported
// by the ensureDb method.
func (s *Server) SetDBCreated(created bool) {
	s.dbCreated = created
}

// NewServer creates a server for the given endpoint path.
func NewServer(st *store.Store, lg *logging.Logger, sockPath string, diag *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:     st,
		logger:    lg,
		slog:      diag,
		sockPath:  sockPath,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	s.initHandlers()
	return s
}

func (s *Server) initHandlers() {
	s.handlers = map[string]handlerFunc{
		MethodHealth:                s.handleHealth,
		MethodEnsureDB:              s.handleEnsureDB,
		MethodGetDBPath:             s.handleGetDBPath,
		MethodUpsertSession:         s.handleUpsertSession,
		MethodUpsertMessage:         s.handleUpsertMessage,
		MethodUpsertTool:            s.handleUpsertTool,
		MethodUpsertSessionError:    s.handleUpsertSessionError,
		MethodUpsertCompactionEvent: s.handleUpsertCompactionEvent,
		MethodGetSessions:           s.handleGetSessions,
		MethodGetSession:            s.handleGetSession,
		MethodGetMessages:           s.handleGetMessages,
		MethodLogWrite:              s.handleLogWrite,
	}
}

// Start binds the endpoint and begins accepting connections.
func (s *Server) Start() error {
	listener, err := listenEndpoint(s.sockPath)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()
	s.slog.Info("listening", "endpoint", s.sockPath)
	return nil
}

// Stop cancels the accept loop, closes the listener, and waits up to
// drainTimeout for in-flight handlers.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		s.slog.Warn("shutdown drain timed out", "timeout", drainTimeout.String())
	}

	return removeEndpoint(s.sockPath)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.slog.Error("accept failed", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection serves one client. Each request's response is written
// before the next request is read, which gives per-connection ordering. A
// malformed frame closes the connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Close the connection when the server shuts down so blocked reads
	// unwind promptly.
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	reader := bufio.NewReader(conn)
	for {
		body, err := ReadFrame(reader)
		if err != nil {
			// EOF on peer disconnect, or a malformed frame. Either way the
			// connection is done.
			return
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			s.slog.Debug("closing connection on undecodable frame", "error", err)
			return
		}

		resp := s.dispatch(&req)
		if req.IsNotification() {
			continue
		}
		out, err := json.Marshal(resp)
		if err != nil {
			s.slog.Error("failed to marshal response", "error", err)
			return
		}
		if err := WriteFrame(conn, out); err != nil {
			return
		}
	}
}

// dispatch routes one request to its handler and builds the response.
func (s *Server) dispatch(req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	handler, ok := s.handlers[req.Method]
	if !ok {
		resp.Error = NewError(CodeMethodNotFound, "method not found: "+req.Method)
		return resp
	}

	var env Envelope
	if len(req.Params) > 0 {
		// Tolerant decode: the envelope fields ride inside params.
		_ = json.Unmarshal(req.Params, &env)
	}

	result, rpcErr := handler(s.ctx, env, req.Params)
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = NewError(CodeInternalError, err.Error())
		return resp
	}
	resp.Result = data
	return resp
}
