package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "layout":
		os.Exit(runLayout(os.Args[2:]))
	case "state":
		os.Exit(runState(os.Args[2:]))
	case "maximize":
		os.Exit(runSimple("maximize", "Toggle manual maximize of the attached window.", args(), func(c *ipc.Client) error { return c.ToggleMaximize() }))
	case "release":
		os.Exit(runSimple("release", "Release every screen-edge reservation the daemon holds.", args(), func(c *ipc.Client) error { return c.Release() }))
	case "reload":
		os.Exit(runSimple("reload", "Reload the daemon configuration from disk.", args(), func(c *ipc.Client) error { return c.Reload() }))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func args() []string { return os.Args[2:] }

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskshell <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the reservation daemon (foreground)")
	fmt.Fprintln(w, "  status              Show what the daemon holds")
	fmt.Fprintln(w, "  monitors            Show monitors and the one owning the attached window")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  layout              Report measured window chrome")
	fmt.Fprintln(w, "  state               Report a window show-state change")
	fmt.Fprintln(w, "  maximize            Toggle manual maximize")
	fmt.Fprintln(w, "  release             Release every reservation")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the config file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open the interactive dashboard")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskshell <command> --help' for command-specific options.")
}

// newFlagSet returns a flag set printing usage and description to stderr.
func newFlagSet(name, usage, desc string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, desc)
		hasFlags := false
		fs.VisitAll(func(*flag.Flag) { hasFlags = true })
		if hasFlags {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parseFlags returns -1 to continue, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	return -1
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runSimple(name, desc string, args []string, call func(*ipc.Client) error) int {
	fs := newFlagSet(name, "deskshell "+name, desc)
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}
	if err := call(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "deskshell status [--json]", "Show daemon status via IPC.")
	jsonOut := fs.Bool("json", false, "Print the raw status as JSON")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	st, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(st)
	}
	writeStatus(os.Stdout, st)
	return 0
}

func writeStatus(w io.Writer, st *ipc.StatusData) {
	fmt.Fprintf(w, "instance:        %s\n", st.InstanceID)
	fmt.Fprintf(w, "uptime_seconds:  %d\n", st.UptimeSeconds)
	fmt.Fprintf(w, "shell:           %v\n", st.Shell)
	if st.Window != 0 {
		fmt.Fprintf(w, "window:          0x%x\n", st.Window)
	} else {
		fmt.Fprintln(w, "window:          (none)")
	}
	fmt.Fprintf(w, "placement:       %s\n", st.Placement)
	fmt.Fprintf(w, "desired_mode:    %s\n", st.DesiredMode)
	fmt.Fprintf(w, "held_mode:       %s\n", st.HeldMode)
	for _, bar := range st.Bars {
		reg := ""
		if !bar.Registered {
			reg = " (unregistered)"
		}
		fmt.Fprintf(w, "bar %-6s       %d %s%s\n", bar.Edge+":", bar.Size, bar.Rect.String(), reg)
	}
	if st.LegacyActive && st.LegacyRect != nil {
		fmt.Fprintf(w, "work_area:       %s\n", st.LegacyRect.String())
	}
	if st.RetryActive {
		fmt.Fprintf(w, "retry:           %d/%d\n", st.RetryAttempt, st.RetryMax)
	}
	if st.HotkeyActive {
		fmt.Fprintf(w, "hotkey:          %s (%d presses)\n", st.HotkeyChord, st.HotkeyPresses)
	}
	fmt.Fprintf(w, "shell_restarts:  %d\n", st.ShellRestarts)
}

func runMonitors(args []string) int {
	fs := newFlagSet("monitors", "deskshell monitors [--json]", "List monitors and the resolver output for the attached window.")
	jsonOut := fs.Bool("json", false, "Print as JSON")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(data)
	}
	fmt.Printf("owner (%s): full %s work %s\n", data.Source, data.Full.String(), data.Work.String())
	for _, m := range data.Monitors {
		name := m.Name
		if name == "" {
			name = "-"
		}
		fmt.Printf("  %d %-10s bounds %s usable %s\n", m.ID, name, m.Bounds.String(), m.Usable.String())
	}
	return 0
}

func runLayout(args []string) int {
	fs := newFlagSet("layout",
		"deskshell layout --sidebar-right PX --titlebar-height DIP [--dpi N] [--bounds X,Y,W,H]",
		"Report freshly measured chrome of the attached window and settle reservations.")
	sidebar := fs.Int("sidebar-right", 0, "Sidebar right edge in device pixels from the monitor's left edge")
	titlebar := fs.Float64("titlebar-height", 0, "Title bar height in device-independent pixels")
	dpi := fs.Int("dpi", 0, "Monitor DPI (default 96)")
	bounds := fs.String("bounds", "", "Current window bounds as X,Y,W,H")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	p := ipc.LayoutSettledPayload{SidebarRight: *sidebar, TitlebarHeight: *titlebar, DPI: *dpi}
	if *bounds != "" {
		r, err := parseRect(*bounds)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		p.Bounds = &r
	}
	if err := ipc.NewClient().LayoutSettled(p); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// parseRect parses "X,Y,W,H".
func parseRect(s string) (ipc.RectData, error) {
	var r ipc.RectData
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return r, fmt.Errorf("bounds must be X,Y,W,H")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &vals[i]); err != nil {
			return r, fmt.Errorf("bounds: invalid number %q", p)
		}
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return r, fmt.Errorf("bounds: width and height must be positive")
	}
	return ipc.RectData{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func runState(args []string) int {
	fs := newFlagSet("state", "deskshell state <normal|maximized|minimized>", "Report an OS show-state change of the attached window.")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "state requires exactly one of normal, maximized, minimized")
		fs.Usage()
		return 2
	}
	if err := ipc.NewClient().WindowState(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

const pathFlagHelp = "Config file path (default: ~/.config/deskshell/config.yaml)"

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  deskshell config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  deskshell config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  deskshell config explain [--path PATH] <yaml.path>")
		fmt.Fprintln(os.Stderr, "  deskshell config path")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", pathFlagHelp)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", pathFlagHelp)
		defaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		cfg := config.DefaultConfig()
		if !*defaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", pathFlagHelp)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		query := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, query)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("path: %s\n", query)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	case "path":
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(p)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runTUI(args []string) int {
	fs := newFlagSet("tui", "deskshell tui [--path PATH]",
		"Dashboard for reservation status and monitors, with a settings editor.\n"+
			"Works as an offline settings editor when the daemon is not running.")
	path := fs.String("path", "", pathFlagHelp)
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if err := tui.Run(*path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		return "default"
	default:
		return string(src.Kind)
	}
}
