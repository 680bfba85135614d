package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Con7105/fantasy-valo/internal/clickhouse"
	"github.com/Con7105/fantasy-valo/internal/config"
	"github.com/Con7105/fantasy-valo/internal/dal"
	grpcserver "github.com/Con7105/fantasy-valo/internal/grpc"
	"github.com/Con7105/fantasy-valo/internal/handlers"
	"github.com/Con7105/fantasy-valo/internal/kv"
	"github.com/Con7105/fantasy-valo/internal/league"
	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/mcptools"
	"github.com/Con7105/fantasy-valo/internal/mocks"
	"github.com/Con7105/fantasy-valo/internal/pubsub"
	"github.com/Con7105/fantasy-valo/internal/scheduler"
	"github.com/Con7105/fantasy-valo/internal/service"
	"github.com/Con7105/fantasy-valo/internal/stats"
	"github.com/Con7105/fantasy-valo/internal/vlr"
)

const version = "0.1.0"

// pgNotifyChannel is the LISTEN/NOTIFY channel for change events.
const pgNotifyChannel = "fantasy_changes"

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Info("Starting fantasy-valo", "version", version, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cleanup closers
	defer cleanup.run()

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open store", "driver", cfg.DB.Driver, "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	cleanup.add(func() { store.Close() })

	bus, err := openBus(ctx, cfg, &cleanup)
	if err != nil {
		logger.Error("Failed to start change notifications", "driver", cfg.NotifyDriver(), "error", err)
		log.Fatalf("Failed to start change notifications: %v", err)
	}

	health := handlers.NewHealth()

	var sink league.ScoreSink
	if cfg.ClickHouse.Addr != "" {
		ch, err := clickhouse.NewClient(cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password)
		if err != nil {
			logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouse.Addr)
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		cleanup.add(func() { ch.Close() })
		health.Optional("clickhouse", ch.Ping)
		sink = ch
	} else {
		logger.Info("CLICKHOUSE_ADDR not set, keeping score history in memory")
		sink = mocks.NewScoreSink()
	}

	upstream := vlr.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	agg := stats.NewAggregator(upstream, cfg.Upstream.Workers)
	scorer := league.NewScorer(store, agg, sink)
	registry := service.NewRegistry(store, scorer, bus)
	registry.WatchAll(ctx)

	health.Critical("store", func(ctx context.Context) error {
		_, err := registry.ListLeagues(ctx)
		return err
	})

	poller, err := scheduler.NewPoller()
	if err != nil {
		log.Fatalf("Failed to create poller: %v", err)
	}
	if err := poller.Watch(registry, cfg.Poll.DraftInterval, cfg.Poll.LeagueInterval); err != nil {
		log.Fatalf("Failed to schedule polling: %v", err)
	}
	poller.Start()
	cleanup.add(func() {
		if err := poller.Stop(); err != nil {
			logger.Warn("Poller shutdown failed", "error", err)
		}
	})

	local, err := openKV(cfg, &cleanup)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}

	grpcSrv := grpc.NewServer()
	grpcserver.NewServer(registry, bus, agg).Register(grpcSrv)
	go func() {
		lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			stop()
			return
		}
		logger.Info("gRPC server starting", "address", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()

	mux := http.NewServeMux()
	handlers.NewAPIHandlers(registry, bus, agg, upstream, local).Register(mux)
	health.Register(mux)
	mux.Handle("/api/proxy", vlr.NewProxy(upstream))
	mux.Handle("/mcp", mcptools.New(registry, agg).Handler(version))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", "error", err)
	}
	grpcSrv.GracefulStop()
}

func openStore(cfg *config.Config) (dal.Store, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		s, err := dal.NewSQLiteStore(cfg.DB.SQLiteFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to SQLite database", "file", cfg.DB.SQLiteFile)
		return s, nil
	case "postgres":
		s, err := dal.NewPostgresStore(cfg.DB.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Postgres database")
		return s, nil
	default:
		logger.Info("Using in-memory data store")
		return dal.NewMemoryStore(), nil
	}
}

// openBus picks the change-notification transport. Every driver other than
// local is bridged through a PubSub so handlers see a single bus.
func openBus(ctx context.Context, cfg *config.Config, cleanup *closers) (*pubsub.PubSub, error) {
	switch cfg.NotifyDriver() {
	case "embedded":
		p, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Subject:    cfg.NATS.Subject,
			StreamName: cfg.NATS.Stream,
		})
		if err != nil {
			return nil, err
		}
		cleanup.add(p.Close)
		logger.Info("Embedded NATS server ready", "url", p.ServerURL())
		return pubsub.NewWithUpstream(p), nil
	case "nats":
		p, err := pubsub.NewNATSPubSub(cfg.NATS.URL, cfg.NATS.Subject, cfg.NATS.Stream)
		if err != nil {
			return nil, err
		}
		cleanup.add(p.Close)
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
		return pubsub.NewWithUpstream(p), nil
	case "postgres":
		p, err := pubsub.NewPGNotifyPubSub(ctx, cfg.DB.DatabaseURL, pgNotifyChannel)
		if err != nil {
			return nil, err
		}
		cleanup.add(p.Close)
		logger.Info("Listening for Postgres notifications", "channel", pgNotifyChannel)
		return pubsub.NewWithUpstream(p), nil
	default:
		logger.Info("Using in-process change notifications")
		return pubsub.New(), nil
	}
}

func openKV(cfg *config.Config, cleanup *closers) (kv.Store, error) {
	if cfg.Local.KVFile == "" {
		return kv.NewMemory(), nil
	}
	s, err := kv.NewSQLite(cfg.Local.KVFile)
	if err != nil {
		return nil, err
	}
	cleanup.add(func() { s.Close() })
	logger.Info("Local state stored in SQLite", "file", cfg.Local.KVFile)
	return s, nil
}
