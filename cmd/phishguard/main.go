// Command phishguard starts the URL threat-scoring service.
// Usage: phishguard [-listen :8080] [-config phishguard.yml] [-verbose]
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phishguard/phishguard/internal/cache"
	"github.com/phishguard/phishguard/internal/cli"
	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/history"
	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/metrics"
	"github.com/phishguard/phishguard/internal/probe"
	"github.com/phishguard/phishguard/internal/scan"
	"github.com/phishguard/phishguard/internal/scoring"
	"github.com/phishguard/phishguard/internal/server"
	"github.com/phishguard/phishguard/internal/webclient"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parsing arguments: %v", err)
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if args.ListenAddr != "" {
		cfg.Server.ListenAddr = args.ListenAddr
	}

	logger := logging.NewStdoutLogger("PhishGuard")
	if args.Verbose {
		logger.Debug("effective config",
			logging.Field{Key: "listen_addr", Value: cfg.Server.ListenAddr},
			logging.Field{Key: "deadline", Value: cfg.Scan.Deadline.Std().String()},
			logging.Field{Key: "cache_ttl", Value: cfg.Scan.CacheTTL.Std().String()},
			logging.Field{Key: "webclient_backend", Value: cfg.WebClient.Backend},
		)
	}

	wc, err := webclient.New(cfg.WebClient, logger.With(logging.Field{Key: "component", Value: "WebClient"}))
	if err != nil {
		log.Fatalf("creating web client: %v", err)
	}
	defer wc.Close()

	probeLogger := logger.With(logging.Field{Key: "component", Value: "Probe"})
	coordinator := probe.NewCoordinator([]probe.Probe{
		probe.NewTLSProbe(cfg.Probes, probeLogger),
		probe.NewDomainProbe(cfg.Probes, probeLogger),
		probe.NewContentProbe(cfg.Probes, wc, probeLogger),
		probe.NewRedirectProbe(cfg.Probes, probeLogger),
		probe.NewReputationProbe(cfg.Probes, wc, probeLogger),
	}, probeLogger)

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = ":memory:"
	}
	store, err := history.New(historyPath, logger.With(logging.Field{Key: "component", Value: "History"}))
	if err != nil {
		log.Fatalf("opening history store: %v", err)
	}
	defer store.Close()

	m, err := metrics.New()
	if err != nil {
		log.Fatalf("registering metrics: %v", err)
	}

	scanner, err := scan.New(scan.Options{
		Deadline:     cfg.Scan.Deadline.Std(),
		ProbeMargin:  cfg.Scan.ProbeMargin.Std(),
		MaxURLLength: cfg.Scan.MaxURLLength,
		URL:          cfg.URL,
		Brands:       cfg.Probes.Brands,
	}, scan.Deps{
		Coordinator: coordinator,
		Engine:      scoring.NewRuleEngine(cfg.Scoring),
		Cache:       cache.New(cfg.Scan.CacheCapacity, cfg.Scan.CacheTTL.Std()),
		History:     store,
		Metrics:     m,
		Logger:      logger.With(logging.Field{Key: "component", Value: "Scanner"}),
	})
	if err != nil {
		log.Fatalf("creating scanner: %v", err)
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Logger:     logger.With(logging.Field{Key: "component", Value: "Server"}),
	}, scanner, store, m.Handler())
	if err != nil {
		log.Fatalf("creating server: %v", err)
	}

	httpServer := srv.HTTPServer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: cfg.Server.ListenAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Field{Key: "error", Value: err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
}
