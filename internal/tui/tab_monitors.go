package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/ipc"
)

// monitorItem implements list.Item for the monitor sidebar.
type monitorItem struct {
	info  ipc.MonitorInfo
	owner bool
}

func (i monitorItem) Title() string {
	prefix := "  "
	if i.owner {
		prefix = "* "
	}
	name := i.info.Name
	if name == "" {
		name = fmt.Sprintf("monitor %d", i.info.ID)
	}
	return prefix + name
}

func (i monitorItem) Description() string { return i.info.Bounds.String() }
func (i monitorItem) FilterValue() string { return i.info.Name }

type monitorsMsg struct {
	data *ipc.MonitorsData
	err  error
}

// MonitorsTab lists displays and the one resolved for the attached window.
type MonitorsTab struct {
	daemon Daemon
	list   list.Model

	data *ipc.MonitorsData
	err  error

	width  int
	height int
}

// NewMonitorsTab creates a MonitorsTab fed from d.
func NewMonitorsTab(d Daemon) MonitorsTab {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Monitors"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return MonitorsTab{daemon: d, list: l}
}

func (mt MonitorsTab) fetch() tea.Cmd {
	d := mt.daemon
	return func() tea.Msg {
		data, err := d.GetMonitors()
		return monitorsMsg{data: data, err: err}
	}
}

func (mt MonitorsTab) Init() tea.Cmd {
	return mt.fetch()
}

func (mt MonitorsTab) Update(msg tea.Msg) (MonitorsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case monitorsMsg:
		mt.data = msg.data
		mt.err = msg.err
		mt.list.SetItems(buildMonitorItems(msg.data))
		return mt, nil
	case tea.WindowSizeMsg:
		mt.width = msg.Width
		mt.height = msg.Height
		mt.list.SetSize(mt.sidebarWidth(), mt.height)
		return mt, nil
	case tea.KeyMsg:
		if msg.String() == "r" {
			return mt, mt.fetch()
		}
	}

	var cmd tea.Cmd
	mt.list, cmd = mt.list.Update(msg)
	return mt, cmd
}

func (mt MonitorsTab) sidebarWidth() int {
	w := mt.width / 3
	if w < 24 {
		w = 24
	}
	return w
}

// buildMonitorItems marks the monitor whose bounds match the resolver's
// full rectangle as the owner.
func buildMonitorItems(data *ipc.MonitorsData) []list.Item {
	if data == nil {
		return nil
	}
	items := make([]list.Item, 0, len(data.Monitors))
	for _, m := range data.Monitors {
		items = append(items, monitorItem{info: m, owner: m.Bounds == data.Full})
	}
	return items
}

func (mt MonitorsTab) View() string {
	style := lipgloss.NewStyle().Width(mt.width).Height(mt.height).Padding(1, 2)
	if mt.err != nil {
		return style.Render(dimStyle.Render("Daemon unreachable: " + mt.err.Error()))
	}
	if mt.data == nil {
		return style.Render(dimStyle.Render("Loading..."))
	}

	detail := []string{
		row("Resolved from", mt.data.Source),
		row("Full", mt.data.Full.String()),
		row("Work", mt.data.Work.String()),
	}
	if item, ok := mt.list.SelectedItem().(monitorItem); ok {
		detail = append(detail,
			"",
			row("Selected", strings.TrimSpace(item.Title())),
			row("Bounds", item.info.Bounds.String()),
			row("Usable", item.info.Usable.String()),
		)
	}

	right := lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(detail, "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, mt.list.View(), right)
}
