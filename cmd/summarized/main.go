// Command summarized runs the local summarize daemon: a long-lived
// HTTP server a browser extension or a second CLI invocation talks to.
// Load config, validate it, wire dependencies, register handlers,
// start ListenAndServe on a goroutine, then block on signal.Notify and
// perform a bounded graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaneholloman/summarize/internal/appwiring"
	"github.com/shaneholloman/summarize/internal/config"
	"github.com/shaneholloman/summarize/internal/daemonhttp"
	"github.com/shaneholloman/summarize/internal/daemoninfo"
	"github.com/shaneholloman/summarize/internal/logging"
	"github.com/shaneholloman/summarize/internal/platformsvc"
	"github.com/shaneholloman/summarize/internal/streammerge"
)

func main() {
	port := flag.Int("port", 0, "listen port (0 picks a free port)")
	printServiceDescriptor := flag.Bool("print-service-descriptor", false, "print the platformsvc.Descriptor an OS-specific installer would register, as JSON, and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *printServiceDescriptor {
		execPath, err := os.Executable()
		if err != nil {
			execPath = "summarized"
		}
		descriptor := platformsvc.NewDescriptor(execPath, cfg.HomeDir, cfg.LogDir, os.Args[1:])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(descriptor)
		return
	}

	logger, err := logging.New(logging.Options{LogDir: cfg.LogDir, Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	app, err := appwiring.Build(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire dependencies")
	}
	defer app.Close()

	listenPort := *port
	if listenPort == 0 {
		listenPort = choosePort()
	}

	info, err := daemoninfo.EnsureToken(cfg.HomeDir, listenPort)
	if err != nil {
		logger.WithError(err).Fatal("failed to persist daemon.json")
	}

	srv := daemonhttp.NewServer(fmt.Sprintf(":%d", listenPort), daemonhttp.WithLogger(logger))
	srv.Orchestrator = app.Orchestrator
	srv.Registry = app.Registry
	srv.Cache = app.Summaries
	srv.Bus = streammerge.NewBus()
	srv.Token = info.Token
	srv.SlidesDir = app.SlidesDir
	if cfg.RateLimit.Enabled {
		srv.RateLimiter = daemonhttp.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	}
	srv.ReadTimeout = cfg.ReadTimeout
	srv.IdleTimeout = cfg.IdleTimeout

	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			logger.WithError(err).Fatal("daemon listener failed")
		}
	}()

	logger.WithField("port", listenPort).Info("daemon ready")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down daemon")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("daemon shutdown failed")
	}
}

// choosePort picks an ephemeral free TCP port the way a local daemon
// that isn't pinned to a well-known port needs to at install time.
func choosePort() int {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 4173
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
