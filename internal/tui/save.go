package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/deskshell/internal/config"
)

type savePhase int

const (
	saveHidden savePhase = iota
	savePreview
	saveResult
)

type diffKind int

const (
	diffContext diffKind = iota
	diffRemoved
	diffAdded
)

type diffLine struct {
	kind diffKind
	text string
}

// SaveOverlay previews the pending config change and writes it on confirm.
type SaveOverlay struct {
	phase    savePhase
	lines    []diffLine
	offset   int
	err      error
	reloaded bool
}

func (s SaveOverlay) Active() bool {
	return s.phase != saveHidden
}

// Show opens the preview, or a "no changes" result when nothing differs.
func (s *SaveOverlay) Show(original, current *config.Config) {
	s.err = nil
	s.reloaded = false
	s.offset = 0
	s.lines = configDiff(original, current)
	if len(s.lines) == 0 {
		s.phase = saveResult
		s.err = fmt.Errorf("no changes to save")
		return
	}
	s.phase = savePreview
}

func (s SaveOverlay) Saved() bool {
	return s.phase == saveResult && s.err == nil
}

// Update handles input while the overlay is active. On confirm it writes cfg
// to path (the default location when empty) and asks a running daemon to
// reload.
func (s SaveOverlay) Update(msg tea.Msg, cfg *config.Config, path string, d Daemon, connected bool) SaveOverlay {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return s
	}
	if s.phase == saveResult {
		s.phase = saveHidden
		return s
	}
	switch km.String() {
	case "esc":
		s.phase = saveHidden
	case "enter", "y":
		if path == "" {
			s.err = cfg.Save()
		} else {
			s.err = cfg.SaveTo(path)
		}
		if s.err == nil && connected && d != nil {
			s.reloaded = d.Reload() == nil
		}
		s.phase = saveResult
	case "up", "k":
		if s.offset > 0 {
			s.offset--
		}
	case "down", "j":
		s.offset++
	}
	return s
}

func (s SaveOverlay) View(width, height int) string {
	var content string
	boxW := clamp(width-8, 30, 80)
	switch s.phase {
	case savePreview:
		content = s.previewContent(boxW-6, height-10)
	case saveResult:
		boxW = clamp(width-8, 30, 60)
		if s.err != nil {
			content = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Render("Error: " + s.err.Error())
		} else {
			content = okStyle.Bold(true).Render("Config saved")
			if s.reloaded {
				content += "\n" + okStyle.Render("Daemon reloaded")
			}
		}
		content += "\n\n" + dimStyle.Render("press any key to dismiss")
	default:
		return ""
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(boxW).
		Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (s SaveOverlay) previewContent(innerW, visible int) string {
	innerW = max(innerW, 10)
	visible = max(visible, 3)
	off := min(s.offset, max(len(s.lines)-visible, 0))
	end := min(off+visible, len(s.lines))

	addStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	rmStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	ctxStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	out := make([]string, 0, end-off)
	for _, dl := range s.lines[off:end] {
		t := dl.text
		if len(t) > innerW-2 {
			t = t[:innerW-2]
		}
		switch dl.kind {
		case diffAdded:
			out = append(out, addStyle.Render("+ "+t))
		case diffRemoved:
			out = append(out, rmStyle.Render("- "+t))
		default:
			out = append(out, ctxStyle.Render("  "+t))
		}
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Render("Save config: pending changes")
	footer := dimStyle.Render("enter: save  esc: cancel  j/k: scroll")
	return title + "\n\n" + strings.Join(out, "\n") + "\n\n" + footer
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// configDiff renders both configs as YAML and diffs them line by line.
func configDiff(original, current *config.Config) []diffLine {
	if original == nil || current == nil {
		return nil
	}
	a, err := yaml.Marshal(original)
	if err != nil {
		return nil
	}
	b, err := yaml.Marshal(current)
	if err != nil {
		return nil
	}
	as := strings.TrimSpace(string(a))
	bs := strings.TrimSpace(string(b))
	if as == bs {
		return nil
	}
	return withContext(lcsDiff(strings.Split(as, "\n"), strings.Split(bs, "\n")), 2)
}

// lcsDiff computes a diff using longest common subsequence. Config files
// are small, so the quadratic table is fine.
func lcsDiff(a, b []string) []diffLine {
	m, n := len(a), len(b)
	tbl := make([][]int, m+1)
	for i := range tbl {
		tbl[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				tbl[i][j] = tbl[i+1][j+1] + 1
			case tbl[i+1][j] >= tbl[i][j+1]:
				tbl[i][j] = tbl[i+1][j]
			default:
				tbl[i][j] = tbl[i][j+1]
			}
		}
	}

	var out []diffLine
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			out = append(out, diffLine{diffContext, a[i]})
			i++
			j++
		case tbl[i+1][j] >= tbl[i][j+1]:
			out = append(out, diffLine{diffRemoved, a[i]})
			i++
		default:
			out = append(out, diffLine{diffAdded, b[j]})
			j++
		}
	}
	for ; i < m; i++ {
		out = append(out, diffLine{diffRemoved, a[i]})
	}
	for ; j < n; j++ {
		out = append(out, diffLine{diffAdded, b[j]})
	}
	return out
}

// withContext keeps changed lines plus ctx lines around each, eliding the
// rest with "...".
func withContext(lines []diffLine, ctx int) []diffLine {
	keep := make([]bool, len(lines))
	changed := false
	for i, l := range lines {
		if l.kind == diffContext {
			continue
		}
		changed = true
		for j := max(i-ctx, 0); j <= min(i+ctx, len(lines)-1); j++ {
			keep[j] = true
		}
	}
	if !changed {
		return nil
	}

	var out []diffLine
	gap := false
	for i, l := range lines {
		if !keep[i] {
			gap = true
			continue
		}
		if gap && len(out) > 0 {
			out = append(out, diffLine{diffContext, "..."})
		}
		gap = false
		out = append(out, l)
	}
	return out
}

// cloneConfig deep-copies cfg via a YAML round trip.
func cloneConfig(cfg *config.Config) *config.Config {
	if cfg == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var clone config.Config
	if err := yaml.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}
