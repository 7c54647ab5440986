package mcp

import "github.com/1broseidon/deskshell/internal/ipc"

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Status  ipc.StatusData `json:"status"`
	Summary string         `json:"summary"`
}

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Owner    OwnerMonitor      `json:"owner"`
	Monitors []ipc.MonitorInfo `json:"monitors"`
}

// OwnerMonitor is the resolver result for the attached window.
type OwnerMonitor struct {
	Full   ipc.RectData `json:"full"`
	Work   ipc.RectData `json:"work"`
	Source string       `json:"source"`
}

// ReleaseInput is the input for the release_reservations tool.
type ReleaseInput struct{}

// ReleaseOutput is the output for the release_reservations tool.
type ReleaseOutput struct {
	Released     bool   `json:"released"`
	PreviousMode string `json:"previous_mode"`
	HeldMode     string `json:"held_mode"`
}

// ReportLayoutInput is the input for the report_layout tool.
type ReportLayoutInput struct {
	SidebarRight   int     `json:"sidebar_right" jsonschema:"required,Sidebar right edge in device pixels, relative to the monitor's left edge"`
	TitlebarHeight float64 `json:"titlebar_height" jsonschema:"required,Title bar height in device-independent pixels"`
	DPI            int     `json:"dpi,omitempty" jsonschema:"Monitor DPI (default: 96)"`
}

// ReportLayoutOutput is the output for the report_layout tool.
type ReportLayoutOutput struct {
	HeldMode string        `json:"held_mode"`
	Bars     []ipc.BarInfo `json:"bars,omitempty"`
}

// SetWindowStateInput is the input for the set_window_state tool.
type SetWindowStateInput struct {
	State string `json:"state" jsonschema:"required,One of normal, maximized, minimized"`
}

// PlacementOutput is returned by tools that change the window placement.
type PlacementOutput struct {
	Placement string `json:"placement"`
	HeldMode  string `json:"held_mode"`
}

// ToggleMaximizeInput is the input for the toggle_maximize tool.
type ToggleMaximizeInput struct{}

// ReloadInput is the input for the reload_config tool.
type ReloadInput struct{}

// ReloadOutput is the output for the reload_config tool.
type ReloadOutput struct {
	Reloaded bool `json:"reloaded"`
}
