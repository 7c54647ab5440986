package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tab identifies a dashboard tab.
type Tab int

const (
	TabStatus Tab = iota
	TabMonitors
	TabSettings
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabStatus:
		return "Status"
	case TabMonitors:
		return "Monitors"
	case TabSettings:
		return "Settings"
	default:
		return "?"
	}
}

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(lipgloss.Color("236")).
				Padding(0, 2)

	tabBarStyle = lipgloss.NewStyle().MarginBottom(1)

	tabGap = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		SetString(" ")

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Width(20).
			Align(lipgloss.Right).
			PaddingRight(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func renderTabBar(active Tab, width int) string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		label := strconv.Itoa(int(i)+1) + ":" + i.String()
		if i == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, intersperse(tabs, tabGap.Render())...)
	return tabBarStyle.Width(width).Render(row)
}

// intersperse inserts sep between each element of items.
func intersperse(items []string, sep string) []string {
	if len(items) <= 1 {
		return items
	}
	result := make([]string, 0, len(items)*2-1)
	for i, item := range items {
		if i > 0 {
			result = append(result, sep)
		}
		result = append(result, item)
	}
	return result
}

// renderStatusBar shows whether the daemon answered and what it holds.
func renderStatusBar(connected bool, heldMode, placement string, width int) string {
	var status string
	if connected {
		parts := []string{okStyle.Render("●") + " daemon connected"}
		if placement != "" {
			parts = append(parts, "placement:"+placement)
		}
		if heldMode != "" {
			parts = append(parts, "holding:"+heldMode)
		}
		status = strings.Join(parts, "  ")
	} else {
		status = dimStyle.Render("●") + " daemon not running"
	}

	return lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1).
		Render(status)
}

func renderHelpBar(active Tab, width int) string {
	help := "tab/shift-tab: switch tabs  1-3: jump to tab  ctrl-s: save  q/ctrl-c: quit"
	switch active {
	case TabStatus:
		help = "r: refresh  x: release  m: toggle maximize  l: reload config  " + help
	case TabSettings:
		help = "e: edit  " + help
	}
	return lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1).
		Render(help)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
