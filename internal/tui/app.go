package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/config"
)

// model is the root bubbletea model for the dashboard.
type model struct {
	configPath string
	result     *config.LoadResult
	loadErr    error
	daemon     Daemon

	activeTab Tab

	statusTab   StatusTab
	monitorsTab MonitorsTab
	settingsTab SettingsTab

	originalConfig *config.Config
	saveOverlay    SaveOverlay

	width  int
	height int
}

func newModel(configPath string, d Daemon) model {
	m := model{
		configPath: configPath,
		daemon:     d,
		activeTab:  TabStatus,
	}
	m.loadConfig()

	var cfg *config.Config
	if m.result != nil {
		cfg = m.result.Config
		m.originalConfig = cloneConfig(cfg)
	}
	m.statusTab = NewStatusTab(d)
	m.monitorsTab = NewMonitorsTab(d)
	m.settingsTab = NewSettingsTab(cfg)
	return m
}

func (m *model) loadConfig() {
	if m.configPath == "" {
		m.result, m.loadErr = config.LoadWithSources()
	} else {
		m.result, m.loadErr = config.LoadFromPath(m.configPath)
	}
}

func (m model) config() *config.Config {
	if m.result == nil {
		return nil
	}
	return m.result.Config
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.statusTab.Init(), m.monitorsTab.Init())
}

func (m model) resize(msg tea.WindowSizeMsg) model {
	m.width = msg.Width
	m.height = msg.Height
	sub := tea.WindowSizeMsg{Width: m.width, Height: max(m.height-4, 1)}
	m.statusTab, _ = m.statusTab.Update(sub)
	m.monitorsTab, _ = m.monitorsTab.Update(sub)
	m.settingsTab, _ = m.settingsTab.Update(sub)
	return m
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Background results go to their tab whichever one is showing.
	switch msg := msg.(type) {
	case statusMsg, refreshTickMsg, actionMsg, clearActionMsg:
		var cmd tea.Cmd
		m.statusTab, cmd = m.statusTab.Update(msg)
		return m, cmd
	case monitorsMsg:
		var cmd tea.Cmd
		m.monitorsTab, cmd = m.monitorsTab.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		return m.resize(msg), nil
	}

	if m.saveOverlay.Active() {
		if km, ok := msg.(tea.KeyMsg); ok {
			if km.String() == "ctrl+c" {
				return m, tea.Quit
			}
			before := m.saveOverlay.phase
			m.saveOverlay = m.saveOverlay.Update(km, m.config(), m.configPath, m.daemon, m.statusTab.Connected())
			if before == savePreview && m.saveOverlay.Saved() {
				m.originalConfig = cloneConfig(m.config())
			}
		}
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+s" {
		if cfg := m.config(); cfg != nil {
			m.saveOverlay.Show(m.originalConfig, cfg)
		}
		return m, nil
	}

	// The settings form consumes every key; only ctrl+c escapes.
	if m.activeTab == TabSettings && m.settingsTab.editing {
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.settingsTab, cmd = m.settingsTab.Update(msg)
		return m, cmd
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case "1":
			m.activeTab = TabStatus
			return m, nil
		case "2":
			m.activeTab = TabMonitors
			return m, nil
		case "3":
			m.activeTab = TabSettings
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabStatus:
		m.statusTab, cmd = m.statusTab.Update(msg)
	case TabMonitors:
		m.monitorsTab, cmd = m.monitorsTab.Update(msg)
	case TabSettings:
		m.settingsTab, cmd = m.settingsTab.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var held, placement string
	if st := m.statusTab.status; m.statusTab.Connected() {
		held, placement = st.HeldMode, st.Placement
	}
	statusBar := renderStatusBar(m.statusTab.Connected(), held, placement, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.activeTab, m.width)

	contentHeight := m.height - lipgloss.Height(statusBar) - lipgloss.Height(tabBar) - lipgloss.Height(helpBar)
	contentHeight = max(contentHeight, 1)

	var content string
	switch {
	case m.saveOverlay.Active():
		content = m.saveOverlay.View(m.width, contentHeight)
	case m.activeTab == TabStatus:
		content = m.statusTab.View()
	case m.activeTab == TabMonitors:
		content = m.monitorsTab.View()
	case m.activeTab == TabSettings:
		content = m.settingsTab.View()
		if m.loadErr != nil && !m.settingsTab.editing {
			content = warnStyle.Render("  config: "+m.loadErr.Error()) + "\n" + content
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, tabBar, content, helpBar)
}
