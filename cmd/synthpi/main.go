// Command synthpi drives an ADF4351 wideband synthesizer board from a
// Raspberry Pi or any Linux box with a spidev port.
// Run with --mock to use a recording bus (no hardware required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sdrworks/synthpi/internal/adf4351"
	"github.com/sdrworks/synthpi/internal/api"
	"github.com/sdrworks/synthpi/internal/bus"
	"github.com/sdrworks/synthpi/internal/config"
	"github.com/sdrworks/synthpi/internal/controller"
	"github.com/sdrworks/synthpi/internal/events"
	"github.com/sdrworks/synthpi/internal/zeroconf"
)

func main() {
	var (
		mock      = flag.Bool("mock", false, "use recording mock bus (no hardware required)")
		addr      = flag.String("addr", ":8090", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/synthpi)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		spiDev    = flag.String("spi", "/dev/spidev0.0", "spidev device for the synthesizer")
		lePin     = flag.String("le-pin", "GPIO25", "latch-enable GPIO (BCM name)")
		serialDev = flag.String("serial", "", "serial bridge device (e.g. /dev/ttyUSB0, overrides --spi)")
		baud      = flag.Int("baud", bus.DefaultBaudRate, "serial bridge baud rate")
		noMDNS    = flag.Bool("no-mdns", false, "disable mDNS advertisement")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "synthpi")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Bus writer
	var writer adf4351.BusWriter
	switch {
	case *mock:
		slog.Info("using mock bus writer")
		writer = bus.NewMock()
	case *serialDev != "":
		w, err := bus.NewSerial(*serialDev, *baud)
		if err != nil {
			slog.Error("serial bridge initialization failed", "err", err)
			os.Exit(1)
		}
		defer w.Close()
		writer = w
	default:
		w, err := bus.NewSPI(*spiDev, *lePin)
		if err != nil {
			slog.Error("SPI initialization failed", "err", err)
			os.Exit(1)
		}
		defer w.Close()
		writer = w
	}

	// Device session + settings store + event bus
	dev := adf4351.NewDevice(writer)
	store := config.NewJSONStore(*cfgDir)
	eventBus := events.NewBus()

	ctrl, err := controller.New(dev, store, eventBus)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}

	// Re-apply external edits of the settings file
	go func() {
		if err := ctrl.Watch(ctx); err != nil {
			slog.Warn("settings watch failed", "err", err)
		}
	}()

	// Zeroconf mDNS registration
	if !*noMDNS {
		port := 8090
		if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
			if p, err := strconv.Atoi(parts[1]); err == nil {
				port = p
			}
		}
		zc := zeroconf.New("synthpi", port)
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	// HTTP server
	router := api.NewRouter(ctrl, eventBus)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("synthpi listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	// Flush pending settings writes
	if err := ctrl.Close(); err != nil {
		slog.Warn("failed to flush settings", "err", err)
	}

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}
