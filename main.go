package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/config"
	"github.com/soar/padcursor/internal/console"
	"github.com/soar/padcursor/internal/gamepad"
	"github.com/soar/padcursor/internal/hub"
	"github.com/soar/padcursor/internal/ingest"
	"github.com/soar/padcursor/internal/logging"
	"github.com/soar/padcursor/internal/sdlinput"
	"github.com/soar/padcursor/internal/server"
	"github.com/soar/padcursor/internal/statsview"
	"github.com/soar/padcursor/internal/tray"
)

// Cross-platform signal handling: use os.Interrupt on all platforms
// On Windows: os.Interrupt is sent when Ctrl+C is pressed
// On Unix: os.Interrupt is equivalent to syscall.SIGINT
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "padcursor:", err)
		os.Exit(2)
	}

	log, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "padcursor:", err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("padcursor failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if cfg.File != "" {
		log.Info("using config file", zap.String("file", cfg.File))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	// Ctrl+C on Windows once SDL has taken over the console handler
	fromConsole := console.IsRunningFromConsole()
	consoleShutdown := make(chan struct{})
	rearmConsole := console.SetupConsoleHandler(consoleShutdown, log.Named("console"))

	manager := gamepad.NewManager(gamepad.Options{
		Tick:       cfg.Dispatch.Tick,
		Speed:      cfg.Dispatch.Speed,
		Near:       cfg.Cursor.Near,
		Far:        cfg.Cursor.Far,
		StartDepth: cfg.Cursor.StartDepth,
	}, log.Named("gamepad"))
	scene := gamepad.NewStaticScene("default")

	h := hub.NewHub(log.Named("hub"))
	go h.Run(ctx)

	broadcaster := hub.NewBroadcaster(h, manager.Changes(), hub.Options{
		FullSync:    cfg.Viewer.FullSync,
		DeltaResync: cfg.Viewer.DeltaResync,
	}, log.Named("hub"))
	go broadcaster.Run(ctx)

	var input http.Handler
	if cfg.Ingest.Enabled {
		input = ingest.New(manager, scene, ingest.Options{Compress: cfg.Ingest.Compress}, log.Named("ingest"))
	}

	frontend, err := frontendFS()
	if err != nil {
		return fmt.Errorf("viewer assets: %w", err)
	}
	srv, err := server.New(h, broadcaster, manager, server.Config{
		Addr:     cfg.Addr,
		Frontend: frontend,
		Ingest:   input,
	}, log.Named("server"))
	if err != nil {
		return err
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	url := viewerURL(cfg.Addr)
	log.Info("padcursor started", zap.String("url", url))

	var stopStats func()
	if cfg.Statsview.Addr != "" {
		stopStats = statsview.Launch(cfg.Statsview.Addr, log.Named("statsview"))
	}

	// Channel for tray-triggered shutdown
	shutdownRequested := make(chan struct{})
	var t *tray.Tray
	if cfg.Tray.Enabled || !fromConsole {
		t = tray.New(url, manager, func() { close(shutdownRequested) }, log.Named("tray"))
		go t.Run(tray.Icon())
	} else {
		log.Info("press Ctrl+C to exit")
	}

	// The reader locks its goroutine to an OS thread for SDL
	readerDone := make(chan struct{})
	readerErrCh := make(chan error, 1)
	if cfg.SDL.Enabled {
		reader := sdlinput.NewReader(manager, scene, log.Named("sdl"))
		reader.OnInit = rearmConsole
		go func() {
			defer close(readerDone)
			if err := reader.Run(ctx); err != nil {
				readerErrCh <- err
			}
		}()
	} else {
		close(readerDone)
	}

	var runErr error
wait:
	for {
		select {
		case <-sigCh:
			log.Info("shutting down")
			break wait
		case <-consoleShutdown:
			log.Info("shutting down")
			break wait
		case <-shutdownRequested:
			log.Info("shutdown requested from tray")
			break wait
		case err := <-serverErrCh:
			runErr = fmt.Errorf("http server: %w", err)
			break wait
		case err := <-readerErrCh:
			// local joysticks are optional; remote input keeps working
			log.Error("joystick reader stopped", zap.Error(err))
		}
	}
	cancel()

	// Wait for reader to finish
	<-readerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	runErr = multierr.Append(runErr, srv.Shutdown(shutdownCtx))

	manager.Close()
	if stopStats != nil {
		stopStats()
	}
	if t != nil {
		t.Quit()
	}

	log.Info("padcursor stopped")
	return runErr
}

// viewerURL turns a listen address into a URL a local browser can open.
func viewerURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host
}
