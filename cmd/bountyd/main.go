package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bountychain/config"
	"bountychain/core"
	"bountychain/core/events"
	"bountychain/core/genesis"
	corestate "bountychain/core/state"
	"bountychain/eventbus"
	"bountychain/gateway/middleware"
	"bountychain/gateway/routes"
	"bountychain/indexer"
	"bountychain/observability"
	"bountychain/observability/logging"
	telemetry "bountychain/observability/otel"
	"bountychain/storage"
)

const genesisPathEnv = "BOUNTY_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides BOUNTY_GENESIS and config GenesisFile)")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("bountyd", cfg.Environment, cfg.LogFile)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "bountyd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		logger.Error("failed to initialise telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	opts := options{genesisPath: genesisPath, allowMigrate: *allowMigrateFlag}
	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("bountyd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

type options struct {
	genesisPath  string
	allowMigrate bool
}

// app bundles the long-lived components of a running daemon.
type app struct {
	db        storage.Database
	node      *core.Node
	index     *indexer.Indexer
	publisher *eventbus.Publisher
	handler   http.Handler
}

func (a *app) Close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.index != nil {
		_ = a.index.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func buildApp(cfg *config.Config, opts options, logger *slog.Logger) (*app, error) {
	treasury, err := cfg.Treasury()
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DBBackend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBBackend, err)
	}
	a := &app{db: db}
	if err := corestate.EnsureStateVersion(db, opts.allowMigrate); err != nil {
		a.Close()
		return nil, err
	}

	node, err := core.NewNode(db, cfg.ChainID, treasury)
	if err != nil {
		a.Close()
		return nil, err
	}
	node.SetLogger(logger.With(slog.String("component", "node")))
	node.SetPauses(cfg.Pauses())
	a.node = node

	if path := strings.TrimSpace(opts.genesisPath); path != "" {
		spec, err := genesis.LoadGenesisSpec(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		applied, err := node.ApplyGenesis(spec)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("genesis checked", slog.String("path", path), slog.Bool("applied", applied))
	}

	sinks := events.Fanout{observability.Events()}
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		idx, err := indexer.Open(cfg.Indexer.Driver, dsn)
		if err != nil {
			a.Close()
			return nil, err
		}
		idx.SetLogger(logger.With(slog.String("component", "indexer")))
		a.index = idx
		sinks = append(sinks, idx)
		logger.Info("puzzle indexer enabled",
			slog.String("driver", cfg.Indexer.Driver),
			logging.MaskField("dsn", dsn))
	}
	if url := strings.TrimSpace(cfg.NATS.URL); url != "" {
		publisher, err := eventbus.Connect(eventbus.Config{URL: url, Subject: cfg.NATS.Subject, Name: "bountyd"})
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher.SetLogger(logger.With(slog.String("component", "eventbus")))
		a.publisher = publisher
		sinks = append(sinks, publisher)
		logger.Info("event bus enabled",
			logging.MaskField("url", url),
			slog.String("subject", cfg.NATS.Subject))
	}
	node.SetEmitter(sinks)

	var directory routes.Directory
	if a.index != nil {
		directory = a.index
	}
	limits := map[string]middleware.RateLimit{}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limits[routes.RateLimitKey] = middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
	}
	handler, err := routes.New(routes.Config{
		Ledger:      node,
		Directory:   directory,
		RateLimiter: middleware.NewRateLimiter(limits, logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: "bountyd",
			LogRequests: !strings.EqualFold(cfg.Environment, "prod"),
			Enabled:     true,
		}, logger),
		Logger: logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure routes: %w", err)
	}
	a.handler = handler
	return a, nil
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	a, err := buildApp(cfg, opts, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", listener.Addr().String()), slog.Uint64("chain_id", cfg.ChainID))
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	return nil
}

type envLookupFunc func(string) (string, bool)

func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(cfgPath)
}
