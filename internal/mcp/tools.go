package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskshell/internal/ipc"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, fmt.Errorf("get_status: %w", err)
	}
	return nil, GetStatusOutput{Status: *st, Summary: Summarize(st)}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	m, err := s.daemon.GetMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, fmt.Errorf("list_monitors: %w", err)
	}
	return nil, ListMonitorsOutput{
		Owner:    OwnerMonitor{Full: m.Full, Work: m.Work, Source: m.Source},
		Monitors: m.Monitors,
	}, nil
}

func (s *Server) handleRelease(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReleaseInput) (*mcpsdk.CallToolResult, ReleaseOutput, error) {
	before, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ReleaseOutput{}, fmt.Errorf("release_reservations: %w", err)
	}
	if err := s.daemon.Release(); err != nil {
		return nil, ReleaseOutput{}, fmt.Errorf("release_reservations: %w", err)
	}
	after, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ReleaseOutput{}, fmt.Errorf("release_reservations: %w", err)
	}
	return nil, ReleaseOutput{
		Released:     before.HeldMode != "none",
		PreviousMode: before.HeldMode,
		HeldMode:     after.HeldMode,
	}, nil
}

func (s *Server) handleReportLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args ReportLayoutInput) (*mcpsdk.CallToolResult, ReportLayoutOutput, error) {
	if args.SidebarRight < 0 || args.TitlebarHeight < 0 || args.DPI < 0 {
		return nil, ReportLayoutOutput{}, fmt.Errorf("report_layout: sidebar_right, titlebar_height and dpi must be >= 0")
	}
	if err := s.daemon.LayoutSettled(ipc.LayoutSettledPayload{
		SidebarRight:   args.SidebarRight,
		TitlebarHeight: args.TitlebarHeight,
		DPI:            args.DPI,
	}); err != nil {
		return nil, ReportLayoutOutput{}, fmt.Errorf("report_layout: %w", err)
	}
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ReportLayoutOutput{}, fmt.Errorf("report_layout: %w", err)
	}
	return nil, ReportLayoutOutput{HeldMode: st.HeldMode, Bars: st.Bars}, nil
}

func (s *Server) handleSetWindowState(_ context.Context, _ *mcpsdk.CallToolRequest, args SetWindowStateInput) (*mcpsdk.CallToolResult, PlacementOutput, error) {
	state := strings.TrimSpace(args.State)
	if state == "" {
		return nil, PlacementOutput{}, fmt.Errorf("set_window_state: state is required")
	}
	if err := s.daemon.WindowState(state); err != nil {
		return nil, PlacementOutput{}, fmt.Errorf("set_window_state: %w", err)
	}
	return s.placement("set_window_state")
}

func (s *Server) handleToggleMaximize(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleMaximizeInput) (*mcpsdk.CallToolResult, PlacementOutput, error) {
	if err := s.daemon.ToggleMaximize(); err != nil {
		return nil, PlacementOutput{}, fmt.Errorf("toggle_maximize: %w", err)
	}
	return s.placement("toggle_maximize")
}

func (s *Server) placement(tool string) (*mcpsdk.CallToolResult, PlacementOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, PlacementOutput{}, fmt.Errorf("%s: %w", tool, err)
	}
	return nil, PlacementOutput{Placement: st.Placement, HeldMode: st.HeldMode}, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ReloadOutput{}, fmt.Errorf("reload_config: %w", err)
	}
	return nil, ReloadOutput{Reloaded: true}, nil
}

// Summarize renders a one-line description of st.
func Summarize(st *ipc.StatusData) string {
	var b strings.Builder
	if st.Shell {
		b.WriteString("shell")
	} else {
		b.WriteString("cooperating")
	}
	fmt.Fprintf(&b, ", placement %s, holding %s", st.Placement, st.HeldMode)
	if st.DesiredMode != st.HeldMode {
		fmt.Fprintf(&b, " (owed %s)", st.DesiredMode)
	}
	for _, bar := range st.Bars {
		if bar.Registered {
			fmt.Fprintf(&b, ", %s=%d", bar.Edge, bar.Size)
		}
	}
	if st.LegacyActive && st.LegacyRect != nil {
		fmt.Fprintf(&b, ", work area %s", st.LegacyRect.String())
	}
	if st.RetryActive {
		fmt.Fprintf(&b, ", retry %d/%d", st.RetryAttempt, st.RetryMax)
	}
	return b.String()
}
