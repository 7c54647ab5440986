package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskshell/internal/ipc"
)

const (
	ServerName    = "deskshell"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	GetMonitors() (*ipc.MonitorsData, error)
	Release() error
	LayoutSettled(p ipc.LayoutSettledPayload) error
	WindowState(state string) error
	ToggleMaximize() error
	Reload() error
}

// Server is the MCP server exposing the reservation daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates a server talking to the running daemon.
func NewServer() *Server {
	return NewServerWith(ipc.NewClient())
}

// NewServerWith creates a server over d.
func NewServerWith(d Daemon) *Server {
	s := &Server{daemon: d}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the reservation daemon state: whether it is the shell, the window placement, the reservation mode owed and held, every cooperative bar claim with its size and rectangle, the legacy work-area override, and the retry budget.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List the displays with their full and usable rectangles, plus the monitor resolved for the attached window and which fallback step produced it (window, primary or screen).",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "release_reservations",
		Description: "Release every screen-edge claim and restore the full work area. Safe to call when nothing is held.",
	}, s.handleRelease)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "report_layout",
		Description: "Report freshly measured window chrome (sidebar right edge in device pixels, title bar height in device-independent pixels and the DPI). Triggers a layout settle, which reapplies whatever reservation is owed.",
	}, s.handleReportLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_state",
		Description: "Report an OS show-state change of the attached window: normal, maximized or minimized.",
	}, s.handleSetWindowState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_maximize",
		Description: "Press the window's maximize button: fills the monitor with reserved edges, or restores the previous bounds.",
	}, s.handleToggleMaximize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Reload the daemon configuration from disk.",
	}, s.handleReload)
}
