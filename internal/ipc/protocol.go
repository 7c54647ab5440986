package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/deskshell/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandAttach         CommandType = "ATTACH"
	CommandLayoutSettled  CommandType = "LAYOUT_SETTLED"
	CommandWindowState    CommandType = "WINDOW_STATE"
	CommandToggleMaximize CommandType = "TOGGLE_MAXIMIZE"
	CommandRelease        CommandType = "RELEASE"
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandGetMonitors    CommandType = "GET_MONITORS"
	CommandReload         CommandType = "RELOAD"
	CommandPing           CommandType = "PING"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// RectData is a rectangle on the wire.
type RectData struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func RectDataFrom(r platform.Rect) RectData {
	return RectData{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func (r RectData) Rect() platform.Rect {
	return platform.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func (r RectData) String() string {
	return r.Rect().String()
}

// AttachPayload names the main window.
type AttachPayload struct {
	WindowID uint64 `json:"window_id"`
}

// LayoutSettledPayload carries the chrome measured after a layout pass.
type LayoutSettledPayload struct {
	// SidebarRight is in device pixels relative to the monitor's left edge.
	SidebarRight int `json:"sidebar_right"`
	// TitlebarHeight is in device-independent pixels.
	TitlebarHeight float64 `json:"titlebar_height"`
	// DPI defaults to 96 when zero.
	DPI    int       `json:"dpi,omitempty"`
	Bounds *RectData `json:"bounds,omitempty"`
}

// WindowStatePayload reports an OS show state change.
type WindowStatePayload struct {
	State string `json:"state"`
}

// BarInfo describes one cooperative bar claim.
type BarInfo struct {
	Edge       string   `json:"edge"`
	Size       int      `json:"size"`
	Registered bool     `json:"registered"`
	Rect       RectData `json:"rect"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	InstanceID     string    `json:"instance_id"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	DaemonRunning  bool      `json:"daemon_running"`
	Shell          bool      `json:"shell"`
	Window         uint64    `json:"window_id,omitempty"`
	Placement      string    `json:"placement"`
	DesiredMode    string    `json:"desired_mode"`
	HeldMode       string    `json:"held_mode"`
	Bars           []BarInfo `json:"bars,omitempty"`
	LegacyActive   bool      `json:"legacy_active"`
	LegacyRect     *RectData `json:"legacy_rect,omitempty"`
	RetryActive    bool      `json:"retry_active"`
	RetryAttempt   int       `json:"retry_attempt"`
	RetryMax       int       `json:"retry_max"`
	HotkeyActive   bool      `json:"hotkey_active"`
	HotkeyChord    string    `json:"hotkey_chord,omitempty"`
	HotkeyPresses  int       `json:"hotkey_presses"`
	ShellRestarts  int       `json:"shell_restarts"`
	ManualMaximize bool      `json:"manual_maximize"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Bounds RectData `json:"bounds"`
	Usable RectData `json:"usable"`
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	// Full, Work and Source are the resolver output for the attached window.
	Full     RectData      `json:"full"`
	Work     RectData      `json:"work"`
	Source   string        `json:"source"`
	Monitors []MonitorInfo `json:"monitors"`
}

// NewOKResponse creates a successful response
func NewOKResponse(data interface{}) (*Response, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
	}

	return &Response{
		Status: "OK",
		Data:   rawData,
	}, nil
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  err,
	}
}

// ParseRequest parses a JSON request
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
