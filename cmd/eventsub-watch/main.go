// Command eventsub-watch is the entry point for the EventSub WebSocket
// session watcher. It loads one watch-target configuration per YAML file in
// the config directory, runs one reconnecting session client per target,
// and serves a live status dashboard over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/Guliveer/twitch-eventsub-go/internal/config"
	"github.com/Guliveer/twitch-eventsub-go/internal/logger"
	"github.com/Guliveer/twitch-eventsub-go/internal/notify"
	"github.com/Guliveer/twitch-eventsub-go/internal/runner"
	"github.com/Guliveer/twitch-eventsub-go/internal/server"
	"github.com/Guliveer/twitch-eventsub-go/internal/workerpool"
)

// preflightConcurrency bounds how many targets are reachability-checked at
// once during startup.
const preflightConcurrency = 4

const banner = `
╔══════════════════════════════════════════════════╗
║     EventSub WebSocket Session Watcher — Go       ║
╚══════════════════════════════════════════════════╝
`

func main() {
	configDir := flag.String("config", "configs", "Path to the watch-target configuration directory")
	port := flag.String("port", "8080", "Port for the status/dashboard HTTP server")
	logLevel := flag.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL env)")
	noColor := flag.Bool("no-color", false, "Disable colored output (overrides TTY detection)")
	logDir := flag.String("log-dir", "", "Directory for per-target log files (empty disables file logging)")
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *logLevel != "" {
		level = logger.ParseLevel(*logLevel)
	} else if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = logger.ParseLevel(envLevel)
	}

	httpPort := *port
	if envPort := os.Getenv("PORT"); envPort != "" {
		httpPort = envPort
	}

	colored := !*noColor && term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""

	rootLog, err := logger.Setup(logger.Config{
		Level:   level,
		Colored: colored,
		LogDir:  *logDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(banner)
	rootLog.Info("starting eventsub-watch")

	configs, err := config.LoadAllTargetConfigs(*configDir)
	if err != nil {
		rootLog.Error("failed to load target configs", "dir", *configDir, "error", err)
		os.Exit(1)
	}

	for _, cfg := range configs {
		if err := config.Validate(cfg); err != nil {
			rootLog.Error("invalid config", "target", cfg.Name, "error", err)
			os.Exit(1)
		}
	}

	rootLog.Info("loaded target configurations", "count", len(configs), "config_dir", *configDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		rootLog.Info("received shutdown signal", "signal", sig.String())
		cancel()

		time.AfterFunc(30*time.Second, func() {
			rootLog.Error("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		})
	}()

	var runners []*runner.Runner
	for _, cfg := range configs {
		if !cfg.IsEnabled() {
			rootLog.Info("target is disabled, skipping", "target", cfg.Name)
			continue
		}

		targetLog := rootLog.WithTarget(cfg.Name)
		dispatcher := notify.NewDispatcher(cfg.Notifications, targetLog)
		targetLog.SetNotifyFunc(dispatcher.NotifyFunc())

		runners = append(runners, runner.New(cfg, targetLog, dispatcher))
	}

	preflightCtx, cancelPreflight := context.WithTimeout(ctx, 10*time.Second)
	if err := workerpool.Run(preflightCtx, runners, preflightConcurrency, func(ctx context.Context, r *runner.Runner) error {
		return r.Preflight(ctx)
	}); err != nil {
		rootLog.Warn("one or more targets failed their startup reachability check, will keep retrying", "error", err)
	}
	cancelPreflight()

	addr := ":" + httpPort
	statusServer := server.NewStatusServer(addr, rootLog)
	statusServer.SetStatusFunc(func() []server.TargetStatus {
		statuses := make([]server.TargetStatus, 0, len(runners))
		for _, r := range runners {
			statuses = append(statuses, r.Status())
		}
		return statuses
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := statusServer.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	rootLog.Info("status server started", "addr", addr)

	for _, r := range runners {
		r := r
		g.Go(func() error {
			if err := r.Run(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		rootLog.Error("eventsub-watch exited with error", "error", err)
		os.Exit(1)
	}

	rootLog.Info("shutdown complete. goodbye!")
}
