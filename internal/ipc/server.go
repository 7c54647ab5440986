package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/runtimepath"
)

// Handler executes IPC commands. Implementations marshal the work onto the
// daemon loop and return once it has run.
type Handler interface {
	Attach(window platform.WindowID) error
	LayoutSettled(p LayoutSettledPayload) error
	WindowState(state platform.WindowState) error
	ToggleMaximize() error
	Release() error
	Status() (StatusData, error)
	Monitors() (MonitorsData, error)
	Reload() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      Handler
	logger       *slog.Logger
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server on the runtime socket path.
func NewServer(handler Handler, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, handler, logger), nil
}

// NewServerAt creates a server bound to socketPath.
func NewServerAt(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if ok, err := peerIsCurrentUser(conn); err != nil {
		s.logger.Debug("IPC peer credentials unavailable", "error", err)
	} else if !ok {
		s.sendError(conn, "permission denied")
		return
	}

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)

	switch req.Command {
	case CommandPing:
		return ok(nil)
	case CommandAttach:
		return s.handleAttach(req.Payload)
	case CommandLayoutSettled:
		return s.handleLayoutSettled(req.Payload)
	case CommandWindowState:
		return s.handleWindowState(req.Payload)
	case CommandToggleMaximize:
		return result(s.handler.ToggleMaximize(), "Failed to toggle maximize")
	case CommandRelease:
		return result(s.handler.Release(), "Failed to release reservations")
	case CommandReload:
		return result(s.handler.Reload(), "Failed to reload config")
	case CommandGetStatus:
		status, err := s.handler.Status()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
		}
		return ok(status)
	case CommandGetMonitors:
		monitors, err := s.handler.Monitors()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
		}
		return ok(monitors)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleAttach(payload json.RawMessage) *Response {
	var req AttachPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid attach payload: %v", err))
	}
	if req.WindowID == 0 {
		return NewErrorResponse("window_id is required")
	}
	return result(s.handler.Attach(platform.WindowID(req.WindowID)), "Failed to attach")
}

func (s *Server) handleLayoutSettled(payload json.RawMessage) *Response {
	var req LayoutSettledPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid layout payload: %v", err))
		}
	}
	if req.SidebarRight < 0 || req.TitlebarHeight < 0 || req.DPI < 0 {
		return NewErrorResponse("sidebar_right, titlebar_height and dpi must be >= 0")
	}
	return result(s.handler.LayoutSettled(req), "Failed to settle layout")
}

func (s *Server) handleWindowState(payload json.RawMessage) *Response {
	var req WindowStatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid window state payload: %v", err))
	}
	state, err := platform.ParseWindowState(req.State)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return result(s.handler.WindowState(state), "Failed to apply window state")
}

func ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func result(err error, msg string) *Response {
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("%s: %v", msg, err))
	}
	return ok(nil)
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.wg.Wait()
	}
	os.Remove(s.socketPath)
}
