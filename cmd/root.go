// Package cmd wires the collectors, the HTTP read side, and the terminal
// dashboard into the nftracker binary.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/untoldwind/nftracker/api"
	"github.com/untoldwind/nftracker/config"
	"github.com/untoldwind/nftracker/conntrack"
	"github.com/untoldwind/nftracker/device"
	"github.com/untoldwind/nftracker/leases"
	"github.com/untoldwind/nftracker/metrics"
	"github.com/untoldwind/nftracker/ui"
)

// Version is set at build time via ldflags.
var Version = "0.2.0"

// CLIConfig holds CLI configuration.
type CLIConfig struct {
	ConfigPath string
	Debug      bool
	HTTPAddr   string
	TopMode    bool
}

// ExitCodeError signals a non-zero exit code without calling os.Exit directly.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

func printUsage() {
	fmt.Fprintf(os.Stderr, `nftracker v%s — per-host WAN traffic tracker for small routers

Usage:
  nftracker [OPTIONS]

Modes:
  (default)         Daemon: collectors + HTTP snapshot/metrics endpoint
  -top              Interactive TUI dashboard (collectors keep running)
  -version          Print version and exit

Options:
  -config PATH      Configuration file (default: nftracker.toml)
  -D, -debug        Verbose (debug level) logging
  -http-addr ADDR   HTTP listen address (default: 127.0.0.1:8080)

Endpoints:
  GET /api/connections   Per-host rate series, Local -> Remote
  GET /api/device        WAN interface rate series
  GET /api/leases        Current DHCP lease snapshot
  GET /metrics           Prometheus collector metrics

Examples:
  nftracker -config /etc/nftracker.toml
  nftracker -config /etc/nftracker.toml -top
  nftracker -D -http-addr :8080
`, Version)
}

// Run parses flags and starts the application.
func Run() error {
	var cfg CLIConfig
	var showVersion bool

	flag.StringVar(&cfg.ConfigPath, "config", "nftracker.toml", "Configuration file path")
	flag.BoolVar(&cfg.Debug, "D", false, "Verbose (debug level) logging")
	flag.BoolVar(&cfg.Debug, "debug", false, "Verbose (debug level) logging")
	flag.StringVar(&cfg.HTTPAddr, "http-addr", "127.0.0.1:8080", "HTTP listen address")
	flag.BoolVar(&cfg.TopMode, "top", false, "Interactive TUI dashboard")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("nftracker v%s\n", Version)
		return nil
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if cfg.Debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		level.Error(logger).Log("msg", "configuration error", "err", err)
		return ExitCodeError{Code: 2}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	conntrackCollector := conntrack.NewCollector(
		fileCfg.ConntrackFile, fileCfg.LocalSubnets, fileCfg.RetainData,
		log.With(logger, "collector", "conntrack"),
	).WithMetrics(m)
	deviceCollector := device.NewCollector(
		fileCfg.DeviceFile, fileCfg.WANInterface, fileCfg.RetainData,
		log.With(logger, "collector", "device"),
	).WithMetrics(m)
	leasesCollector := leases.NewCollector(
		fileCfg.LeasesFile,
		log.With(logger, "collector", "leases"),
	).WithMetrics(m)

	go conntrackCollector.Run(ctx)
	go deviceCollector.Run(ctx)
	go leasesCollector.Run(ctx)

	router := api.NewServer(conntrackCollector, deviceCollector, leasesCollector, logger).Router()
	router.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	level.Info(logger).Log("msg", "listening", "addr", cfg.HTTPAddr)

	if cfg.TopMode {
		model := ui.NewModel(conntrackCollector, deviceCollector, leasesCollector, time.Second)
		p := tea.NewProgram(model, tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		_, err = p.Run()
		stop()
		shutdown(server, logger)
		return err
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	level.Info(logger).Log("msg", "shutting down")
	shutdown(server, logger)
	return nil
}

func shutdown(server *http.Server, logger log.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "http shutdown failed", "err", err)
	}
}
