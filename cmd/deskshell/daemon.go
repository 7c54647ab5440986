package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/daemon"
	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/journal"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/runtimepath"
	"github.com/1broseidon/deskshell/internal/shellreg"
)

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "deskshell daemon [--path PATH]",
		"Run the work-area reservation daemon in the foreground.")
	path := fs.String("path", "", pathFlagHelp)
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(daemon.LogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := ipc.NewClient().Ping(); err == nil {
		logger.Error("another deskshell daemon is already running")
		return 1
	}

	if err := serveDaemon(cfg, *path, level, logger); err != nil {
		logger.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

func serveDaemon(cfg *config.Config, configPath string, level *slog.LevelVar, logger *slog.Logger) error {
	shell, err := shellreg.Detect(shellreg.Mode(cfg.Shell.Mode), shellreg.DefaultSource(cfg.Shell.RegisteredPath))
	if err != nil {
		logger.Warn("shell detection failed, cooperating", "error", err)
		shell = false
	}

	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}
	backend, err := platform.Open(cfg.Display)
	if err != nil {
		return fmt.Errorf("connect to display: %w", err)
	}

	lc := cfg.GetLoggingConfig()
	jr, err := journal.Open(journal.Config{
		Enabled:   lc.Enabled,
		Level:     journal.ParseLevel(lc.Level),
		FilePath:  lc.File,
		MaxSizeMB: lc.MaxSizeMB,
		MaxFiles:  lc.MaxFiles,
	})
	if err != nil {
		logger.Warn("reservation journal disabled", "error", err)
		jr = nil
	}
	defer jr.Close()

	leasePath, err := runtimepath.LeasePath()
	if err != nil {
		logger.Warn("lease file disabled", "error", err)
	}

	opts := daemon.Options{
		Config:     cfg,
		Backend:    backend,
		Shell:      shell,
		Loop:       daemon.NewLoop(256, logger),
		Logger:     logger,
		Level:      level,
		LeasePath:  leasePath,
		ConfigPath: configPath,
	}
	if jr != nil {
		opts.Journal = jr
	}
	host, err := daemon.NewHost(opts)
	if err != nil {
		backend.Disconnect()
		return err
	}

	// A panic on this goroutine still gives the work area back.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("daemon panic, releasing reservations", "panic", r)
			host.ReleaseNow()
			panic(r)
		}
	}()

	server, err := ipc.NewServer(host, logger)
	if err != nil {
		host.Close()
		return err
	}
	if err := server.Start(); err != nil {
		host.Close()
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				if err := host.Reload(); err != nil {
					logger.Warn("config reload failed", "error", err)
				}
			}
		}
	}()

	logger.Info("deskshell daemon started",
		"instance", host.InstanceID(),
		"shell", shell,
		"socket", server.SocketPath(),
	)
	err = host.Run(ctx)
	logger.Info("deskshell daemon stopped")
	return err
}
