// Command server runs the driver document compliance service: the document
// registry API, the verification aggregator, and the scheduled expiry
// sweeper, all in one process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetdocs/internal/audit"
	dochandler "fleetdocs/internal/document/handler"
	docmetrics "fleetdocs/internal/document/metrics"
	docservice "fleetdocs/internal/document/service"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/jwttoken"
	"fleetdocs/internal/notify"
	"fleetdocs/internal/platform/config"
	"fleetdocs/internal/platform/httpserver"
	"fleetdocs/internal/platform/logger"
	"fleetdocs/internal/platform/metrics"
	"fleetdocs/internal/platform/postgres"
	platformredis "fleetdocs/internal/platform/redis"
	profilestore "fleetdocs/internal/profile/store"
	"fleetdocs/internal/storage"
	sweephandler "fleetdocs/internal/sweeper/handler"
	sweepmetrics "fleetdocs/internal/sweeper/metrics"
	sweepservice "fleetdocs/internal/sweeper/service"
	transporthttp "fleetdocs/internal/transport/http"
	"fleetdocs/internal/transport/http/shared"
	verificationhandler "fleetdocs/internal/verification/handler"
	verificationmetrics "fleetdocs/internal/verification/metrics"
	verificationservice "fleetdocs/internal/verification/service"
	id "fleetdocs/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Debug)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		shared.EnableDebugMessages()
	}

	healthChecks := map[string]func(context.Context) error{}

	// Persistence: postgres when configured, in-memory for local development.
	var (
		docs       docstore.Store
		profiles   profilestore.Store
		auditStore audit.Store
		tx         docservice.StoreTx
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Debug {
			if err := postgres.ApplySchema(ctx, db); err != nil {
				return err
			}
		}
		docs = docstore.NewPostgres(db)
		profiles = profilestore.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		tx = newPostgresTx(db, cfg.Database.QueryTimeout)
		healthChecks["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
	} else {
		memDocs := docstore.NewInMemory()
		memProfiles := profilestore.NewInMemory()
		docs, profiles = memDocs, memProfiles
		auditStore = audit.NewInMemoryStore()
		tx = docservice.NewMemoryTx(memDocs, memProfiles)
		log.Warn("no database configured, using in-memory stores")
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		healthChecks["redis"] = cache.Health
	}

	var objects storage.ObjectStore
	if cfg.Storage.Bucket != "" {
		objects, err = storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			return err
		}
	} else {
		objects = storage.NewInMemory("fleetdocs-dev")
		log.Warn("no bucket configured, using the in-memory URL signer")
	}

	var notifier notify.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := notify.NewKafka(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		defer kafka.Close()
		notifier = kafka
	} else {
		notifier = notify.NewInMemory()
		log.Warn("no kafka brokers configured, notifications stay in memory")
	}

	auditor := audit.NewPublisher(auditStore, log, audit.WithAsyncBuffer(256))
	defer auditor.Close()

	tenant, err := id.ParseTenantID(cfg.Storage.TenantNamespace)
	if err != nil {
		return err
	}

	verifier, err := verificationservice.New(docs, profiles, cache, cfg.Redis.StatusTTL,
		cfg.RequiredDocumentTypes, verificationmetrics.New(), log)
	if err != nil {
		return err
	}

	registry := docservice.New(docs, tx, objects, verifier, auditor, docservice.Config{
		UploadGrantTTL: cfg.Storage.UploadGrantTTL,
		ReadGrantTTL:   cfg.Storage.ReadGrantTTL,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Tenant:         tenant,
	}, docmetrics.New(), log)

	sweeper := sweepservice.New(docs, tx, verifier, notifier, auditor, cfg.Sweep, sweepmetrics.New(), log)

	router := transporthttp.NewRouter(transporthttp.Dependencies{
		Logger:       log,
		Metrics:      metrics.New(),
		Validator:    jwttoken.New(cfg.JWTSigningKey, "fleetdocs"),
		Documents:    dochandler.New(registry),
		Verification: verificationhandler.New(verifier),
		Sweep:        sweephandler.New(sweeper),
		Audit:        audit.NewHandler(auditStore),
		HealthChecks: healthChecks,
	})

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweepservice.NewWorker(sweeper, cfg.Sweep.Interval, log).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
