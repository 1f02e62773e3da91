package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/vereinskasse/internal/api"
	"github.com/example/vereinskasse/internal/backup"
	"github.com/example/vereinskasse/internal/catalog"
	"github.com/example/vereinskasse/internal/config"
	"github.com/example/vereinskasse/internal/events"
	"github.com/example/vereinskasse/internal/pwa"
	"github.com/example/vereinskasse/internal/sales"
	"github.com/example/vereinskasse/internal/state"
	"github.com/example/vereinskasse/internal/storage"
)

// workerSource hands the registration the worker built for the currently
// deployed version. A new process with a bumped SW_VERSION is what a new
// deployment looks like.
type workerSource struct {
	version int
	scope   string
	caches  *pwa.CacheStorage
	fetcher pwa.Fetcher
	log     logrus.FieldLogger
}

func (s *workerSource) Latest() *pwa.Worker {
	return pwa.NewWorker(s.version, "", s.scope, s.caches, s.fetcher, s.log)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	store, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()
	log.WithField("driver", cfg.StoreDriver).Info("store ready")

	st := state.New(ctx, store, log)

	catalogSvc := catalog.NewService(st, log)
	eventSvc := events.NewService(st, log)
	salesSvc := sales.NewService(st, log)
	codec := backup.NewCodec(log)

	// Offline asset layer; API-only when no web directory is deployed.
	var static http.Handler
	if cfg.WebDir != "" {
		caches := pwa.NewCacheStorage()
		fetcher := pwa.NewFSFetcher(os.DirFS(cfg.WebDir), cfg.Scope)
		source := &workerSource{
			version: cfg.WorkerVersion,
			scope:   cfg.Scope,
			caches:  caches,
			fetcher: fetcher,
			log:     log,
		}
		reg := pwa.NewRegistration(source, func() {
			log.Info("new cache worker took control, clients reload")
		}, cfg.UpdateInterval, log)
		if err := reg.Register(ctx); err != nil {
			log.WithError(err).Warn("initial worker registration failed, serving assets uncached")
		}
		go reg.Run(ctx)
		static = pwa.NewHandler(reg, fetcher, log)
	}

	handlers := api.NewHandlers(catalogSvc)
	eventHandlers := api.NewEventHandlers(eventSvc, catalogSvc, st)
	salesHandlers := api.NewSalesHandlers(salesSvc, eventSvc, catalogSvc)
	backupHandlers := api.NewBackupHandlers(codec, st)
	router := api.NewRouter(handlers, eventHandlers, salesHandlers, backupHandlers, static, log)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server started")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return storage.NewPostgresStore(cfg.PostgresURL)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLiteStore(cfg.SQLitePath)
	}
}
