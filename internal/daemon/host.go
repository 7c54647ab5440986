package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/deskshell/internal/appbar"
	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/geometry"
	"github.com/1broseidon/deskshell/internal/hotkeys"
	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/journal"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/reservation"
	"github.com/1broseidon/deskshell/internal/shellreg"
	"github.com/1broseidon/deskshell/internal/shellwatch"
	"github.com/1broseidon/deskshell/internal/winstate"
	"github.com/1broseidon/deskshell/internal/workarea"
)

// ErrNotAttached is returned by window operations before ATTACH.
var ErrNotAttached = errors.New("no window attached")

const defaultDPI = 96

// Options configures a Host.
type Options struct {
	Config  *config.Config
	Backend platform.Backend
	// Shell is the detected "this process is the shell" fact.
	Shell bool
	Loop  *Loop

	Logger *slog.Logger
	// Level, when set, follows log_level on reload.
	Level   *slog.LevelVar
	Journal journal.Recorder

	// LeasePath enables crash recovery of work-area overrides.
	LeasePath string
	// ConfigPath is reloaded by Reload and watched by Run. Empty uses the
	// default config location.
	ConfigPath string

	// DetectShell re-derives the shell fact when shell settings change on
	// reload. Defaults to shellreg.Detect with the platform source.
	DetectShell func(config.ShellConfig) (bool, error)
	// Timeout bounds how long IPC handlers wait for the loop.
	Timeout time.Duration
}

// Host owns the reservation components and runs them on a Loop. Its exported
// methods may be called from any goroutine; everything else runs on the loop.
type Host struct {
	cfg     *config.Config
	backend platform.Backend
	loop    *Loop
	logger  *slog.Logger
	level   *slog.LevelVar
	journal journal.Recorder

	resolver  *geometry.Resolver
	writer    *workarea.Writer
	registrar *appbar.Registrar
	coord     *reservation.Coordinator
	machine   *winstate.Machine
	intercept *hotkeys.Intercept

	reconciler *Reconciler
	shellWatch *shellwatch.Watcher

	shell       bool
	detectShell func(config.ShellConfig) (bool, error)
	chrome      reservation.Chrome
	restarts    int

	instanceID string
	started    time.Time
	timeout    time.Duration

	leasePath  string
	leaseHeld  bool
	configPath string

	closed         bool
	disconnectOnce sync.Once
}

// NewHost wires every component. Nothing touches the window system until
// Start.
func NewHost(opts Options) (*Host, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("daemon: backend is required")
	}
	if opts.Loop == nil {
		return nil, fmt.Errorf("daemon: loop is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	detect := opts.DetectShell
	if detect == nil {
		detect = detectShell
	}

	h := &Host{
		cfg:         cfg,
		backend:     opts.Backend,
		loop:        opts.Loop,
		logger:      logger,
		level:       opts.Level,
		journal:     opts.Journal,
		shell:       opts.Shell,
		detectShell: detect,
		instanceID:  uuid.NewString(),
		started:     time.Now(),
		timeout:     timeout,
		leasePath:   opts.LeasePath,
		configPath:  opts.ConfigPath,
	}

	h.resolver = geometry.NewResolver(opts.Backend, logger)
	monitor := func() geometry.MonitorRects {
		return h.resolver.MonitorRects(h.machine.Window())
	}

	h.writer = workarea.NewWriter(opts.Backend, opts.Backend, logger)
	h.registrar = appbar.NewRegistrar(opts.Backend, monitor, logger)
	h.machine = winstate.New(winstate.Config{
		Shell:          h.shell,
		ManualMaximize: cfg.ManualMaximize,
		Logger:         logger,
		Journal:        opts.Journal,
	}, opts.Backend, monitor, nil)
	h.coord = reservation.New(reservation.Config{
		Shell:         h.shell,
		TaskbarHeight: cfg.Shell.TaskbarHeight,
		Retry:         retryFrom(cfg),
		Logger:        logger,
		Journal:       opts.Journal,
	}, h.registrar, h.writer, func() reservation.Chrome { return h.chrome }, h.machine.Placement, h.loop)
	h.machine.SetReserver(h.coord)

	h.intercept = hotkeys.NewIntercept(hotkeys.Config{
		Chord:  cfg.ShowDesktopHotkey,
		Post:   func(fn func()) { h.loop.Post(fn) },
		Logger: logger,
	}, opts.Backend, opts.Backend, h.machine.Window)

	h.reconciler = NewReconciler(ReconcilerConfig{
		Interval: cfg.ReconcileInterval(),
		Logger:   logger,
	}, func() { h.loop.Post(h.reconcile) })

	names := cfg.Shell.WatchBusNames
	if len(names) == 0 {
		names = shellwatch.DefaultBusNames
	}
	h.shellWatch = shellwatch.New(names, func(name string) {
		h.loop.Post(func() { h.onShellRestarted("dbus " + name) })
	}, logger)

	return h, nil
}

func retryFrom(cfg *config.Config) reservation.RetryConfig {
	return reservation.RetryConfig{
		MaxAttempts: cfg.Reservation.Retry.MaxAttempts,
		Interval:    cfg.RetryInterval(),
	}
}

func detectShell(sc config.ShellConfig) (bool, error) {
	return shellreg.Detect(shellreg.Mode(sc.Mode), shellreg.DefaultSource(sc.RegisteredPath))
}

// InstanceID identifies this daemon run.
func (h *Host) InstanceID() string {
	return h.instanceID
}

// Start subscribes to window-system events, undoes a stale lease, installs
// the shell intercept and runs the first settle. The loop must be running.
func (h *Host) Start(ctx context.Context) error {
	h.backend.Subscribe(func(ev platform.Event) {
		h.loop.Post(func() { h.handleEvent(ev) })
	})
	return h.loop.Do(ctx, func() error {
		h.recoverLease()
		if err := h.intercept.Install(h.shell); err != nil {
			h.logger.Warn("show-desktop intercept unavailable", "error", err)
		}
		h.coord.OnLayoutSettled()
		h.syncLease()
		h.logger.Info("reservation host started", "instance", h.instanceID, "shell", h.shell)
		return nil
	})
}

// Run starts the loop, the host and its background watchers, then blocks
// until ctx is cancelled and releases everything.
func (h *Host) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go h.loop.Run(loopCtx)

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("start host: %w", err)
	}

	go h.backend.EventLoop()
	go h.reconciler.Run(ctx)
	go func() {
		if err := h.shellWatch.Run(ctx); err != nil && ctx.Err() == nil {
			h.logger.Info("session bus shell watch unavailable", "error", err)
		}
	}()

	if watcher, err := NewConfigWatcher(func() {
		if err := h.Reload(); err != nil {
			h.logger.Warn("config reload failed", "error", err)
		}
	}, h.logger); err != nil {
		h.logger.Warn("config watch unavailable", "error", err)
	} else {
		watcher.SetFiles(h.configFiles())
		go watcher.Run(ctx)
	}

	<-ctx.Done()
	return h.Close()
}

// Close releases every claim, removes the key filter and the lease, and
// stops the loop. It is safe to call more than once.
func (h *Host) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	err := h.loop.Do(ctx, func() error {
		h.shutdown()
		return nil
	})
	h.loop.Stop()
	h.disconnectOnce.Do(h.backend.Disconnect)
	if errors.Is(err, ErrLoopStopped) {
		return nil
	}
	return err
}

// ReleaseNow runs the exit release directly, bypassing the loop. It is
// only for the panic path, where the loop may be the thing that failed.
func (h *Host) ReleaseNow() {
	h.shutdown()
}

func (h *Host) shutdown() {
	if h.closed {
		return
	}
	h.closed = true
	h.coord.ReleaseIfHeld()
	if err := h.intercept.Remove(); err != nil {
		h.logger.Warn("remove show-desktop intercept", "error", err)
	}
	h.syncLease()
	h.logger.Info("reservation host stopped", "instance", h.instanceID)
}

func (h *Host) do(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.loop.Do(ctx, func() error {
		if h.closed {
			return fmt.Errorf("daemon is shutting down")
		}
		err := fn()
		h.syncLease()
		return err
	})
}

func (h *Host) handleEvent(ev platform.Event) {
	if h.closed {
		return
	}
	switch ev.Kind {
	case platform.EventWindowStateChanged:
		if ev.Window != 0 && ev.Window == h.machine.Window() {
			h.machine.OnStateChanged(ev.State)
		}
	case platform.EventShellRestarted:
		h.onShellRestarted("window system")
	case platform.EventDisplayChanged:
		h.coord.HandleEvent(ev)
		h.machine.LayoutPass()
	default:
		h.coord.HandleEvent(ev)
	}
	h.syncLease()
}

func (h *Host) onShellRestarted(source string) {
	if h.closed {
		return
	}
	h.restarts++
	h.logger.Info("shell restarted", "source", source, "count", h.restarts)
	h.coord.OnShellRestarted()
	h.machine.LayoutPass()
	h.syncLease()
}

func (h *Host) reconcile() {
	if h.closed {
		return
	}
	h.machine.LayoutPass()
	h.coord.OnLayoutSettled()
	h.syncLease()
}

// Attach implements ipc.Handler.
func (h *Host) Attach(window platform.WindowID) error {
	return h.do(func() error {
		prev := h.machine.Window()
		if prev == window {
			return nil
		}
		if prev != 0 {
			h.coord.ReleaseIfHeld()
		}
		if err := h.backend.WatchWindow(window); err != nil {
			h.logger.Debug("window state watch unavailable", "window", window, "error", err)
		}
		h.machine.Attach(window)
		h.logger.Info("window attached", "window", window)
		h.coord.OnLayoutSettled()
		return nil
	})
}

// TitlebarPixels scales a device-independent title bar height to device
// pixels.
func TitlebarPixels(dip float64, dpi int) int {
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return int(math.Round(dip * float64(dpi) / defaultDPI))
}

// LayoutSettled implements ipc.Handler.
func (h *Host) LayoutSettled(p ipc.LayoutSettledPayload) error {
	chrome := reservation.Chrome{
		SidebarRight:   p.SidebarRight,
		TitlebarHeight: TitlebarPixels(p.TitlebarHeight, p.DPI),
	}
	return h.do(func() error {
		h.chrome = chrome
		if p.Bounds != nil {
			h.logger.Debug("layout settled", "bounds", p.Bounds.String(), "left", chrome.SidebarRight, "top", chrome.TitlebarHeight)
		}
		h.machine.LayoutPass()
		h.coord.OnLayoutSettled()
		return nil
	})
}

// WindowState implements ipc.Handler.
func (h *Host) WindowState(state platform.WindowState) error {
	return h.do(func() error {
		if h.machine.Window() == 0 {
			return ErrNotAttached
		}
		h.machine.OnStateChanged(state)
		return nil
	})
}

// ToggleMaximize implements ipc.Handler.
func (h *Host) ToggleMaximize() error {
	return h.do(func() error {
		if h.machine.Window() == 0 {
			return ErrNotAttached
		}
		h.machine.ToggleMaximize()
		return nil
	})
}

// Release implements ipc.Handler.
func (h *Host) Release() error {
	return h.do(func() error {
		h.coord.ReleaseIfHeld()
		return nil
	})
}

// Status implements ipc.Handler.
func (h *Host) Status() (ipc.StatusData, error) {
	var data ipc.StatusData
	err := h.do(func() error {
		st := h.coord.Status()
		data = ipc.StatusData{
			InstanceID:     h.instanceID,
			UptimeSeconds:  int64(time.Since(h.started).Seconds()),
			DaemonRunning:  true,
			Shell:          st.Shell,
			Window:         uint64(h.machine.Window()),
			Placement:      h.machine.Placement().String(),
			DesiredMode:    st.Desired.String(),
			HeldMode:       st.Held.String(),
			LegacyActive:   st.LegacyActive,
			RetryActive:    st.RetryActive,
			RetryAttempt:   st.RetryAttempt,
			RetryMax:       st.RetryMax,
			HotkeyActive:   h.intercept.Active(),
			HotkeyChord:    h.intercept.Chord(),
			HotkeyPresses:  h.intercept.Presses(),
			ShellRestarts:  h.restarts,
			ManualMaximize: h.cfg.ManualMaximize,
		}
		if st.LegacyActive {
			r := ipc.RectDataFrom(st.LegacyRect)
			data.LegacyRect = &r
		}
		for _, b := range st.Bars {
			data.Bars = append(data.Bars, ipc.BarInfo{
				Edge:       b.Edge.String(),
				Size:       b.Size,
				Registered: b.Registered,
				Rect:       ipc.RectDataFrom(b.Rect),
			})
		}
		return nil
	})
	return data, err
}

// Monitors implements ipc.Handler.
func (h *Host) Monitors() (ipc.MonitorsData, error) {
	var data ipc.MonitorsData
	err := h.do(func() error {
		mr := h.resolver.MonitorRects(h.machine.Window())
		data.Full = ipc.RectDataFrom(mr.Full)
		data.Work = ipc.RectDataFrom(mr.Work)
		data.Source = string(mr.Source)

		displays, err := h.backend.Displays()
		if err != nil {
			return fmt.Errorf("list displays: %w", err)
		}
		for _, d := range displays {
			data.Monitors = append(data.Monitors, ipc.MonitorInfo{
				ID:     d.ID,
				Name:   d.Name,
				Bounds: ipc.RectDataFrom(d.Bounds),
				Usable: ipc.RectDataFrom(d.Usable),
			})
		}
		return nil
	})
	return data, err
}

// Reload implements ipc.Handler.
func (h *Host) Reload() error {
	res, err := h.loadConfig()
	if err != nil {
		return err
	}
	return h.do(func() error {
		return h.applyConfig(res.Config)
	})
}

func (h *Host) loadConfig() (*config.LoadResult, error) {
	if h.configPath != "" {
		return config.LoadFromPath(h.configPath)
	}
	return config.LoadWithSources()
}

func (h *Host) configFiles() []string {
	res, err := h.loadConfig()
	if err == nil && len(res.Files) > 0 {
		return res.Files
	}
	if h.configPath != "" {
		return []string{h.configPath}
	}
	if p, err := config.DefaultConfigPath(); err == nil {
		return []string{p}
	}
	return nil
}

// ApplyConfig applies cfg on the loop.
func (h *Host) ApplyConfig(cfg *config.Config) error {
	return h.do(func() error { return h.applyConfig(cfg) })
}

func (h *Host) applyConfig(cfg *config.Config) error {
	old := h.cfg
	h.cfg = cfg

	if h.level != nil {
		h.level.Set(LogLevel(cfg.LogLevel))
	}

	shell := h.shell
	if cfg.Shell.Mode != old.Shell.Mode || cfg.Shell.RegisteredPath != old.Shell.RegisteredPath {
		detected, err := h.detectShell(cfg.Shell)
		if err != nil {
			h.logger.Warn("shell detection failed, keeping previous value", "error", err)
		} else {
			shell = detected
		}
	}
	if shell != h.shell {
		h.logger.Info("shell mode changed", "shell", shell)
	}
	h.shell = shell

	// The coordinator goes first so a mode switch releases before the
	// machine's settle acquires.
	h.coord.Reconfigure(shell, cfg.Shell.TaskbarHeight, retryFrom(cfg))
	h.machine.Reconfigure(shell, cfg.ManualMaximize)
	if err := h.intercept.Reconfigure(cfg.ShowDesktopHotkey, shell); err != nil {
		h.logger.Warn("show-desktop intercept reconfigure failed", "error", err)
	}
	h.reconciler.Reset(cfg.ReconcileInterval())

	h.logger.Info("config applied")
	return nil
}

// LogLevel maps a config log_level to a slog level.
func LogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// recoverLease restores the work area recorded by a previous daemon that
// exited without releasing.
func (h *Host) recoverLease() {
	if h.leasePath == "" {
		return
	}
	lease, err := ReadLease(h.leasePath)
	if err != nil {
		h.logger.Warn("stale lease unreadable", "error", err)
		RemoveLease(h.leasePath)
		return
	}
	if lease == nil || lease.InstanceID == h.instanceID {
		return
	}
	restore := lease.Restore.Rect()
	if !restore.Empty() {
		if err := h.backend.SetWorkArea(restore); err != nil {
			h.logger.Warn("restoring work area from stale lease failed", "error", err)
			return
		}
	}
	h.logger.Info("restored work area left by a previous run",
		"instance", lease.InstanceID, "pid", lease.PID, "rect", restore.String())
	if h.journal != nil {
		h.journal.Record(journal.KindRelease, map[string]any{
			"mode":   lease.Mode,
			"reason": "stale lease",
			"rect":   restore.String(),
		})
	}
	if err := RemoveLease(h.leasePath); err != nil {
		h.logger.Warn("remove stale lease", "error", err)
	}
}

// syncLease keeps the lease file in step with whether a work-area restore
// is owed.
func (h *Host) syncLease() {
	if h.leasePath == "" {
		return
	}
	owed := h.writer.Owed()
	switch {
	case owed && !h.leaseHeld:
		w, ht, err := h.backend.PrimaryScreenSize()
		if err != nil {
			h.logger.Warn("lease: screen size unavailable", "error", err)
			return
		}
		lease := Lease{
			InstanceID: h.instanceID,
			PID:        os.Getpid(),
			Mode:       reservation.ModeLegacyShell.String(),
			Applied:    ipc.RectDataFrom(h.writer.Current()),
			Restore:    ipc.RectData{Width: w, Height: ht},
			AcquiredAt: time.Now(),
		}
		if err := WriteLease(h.leasePath, lease); err != nil {
			h.logger.Warn("lease write failed", "error", err)
			return
		}
		h.leaseHeld = true
	case !owed && h.leaseHeld:
		if err := RemoveLease(h.leasePath); err != nil {
			h.logger.Warn("lease remove failed", "error", err)
			return
		}
		h.leaseHeld = false
	}
}
