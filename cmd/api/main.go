package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelpass.org/internal/config"
	"hostelpass.org/internal/enrich"
	"hostelpass.org/internal/feed"
	"hostelpass.org/internal/httpapi"
	"hostelpass.org/internal/notify"
	"hostelpass.org/internal/obs"
	"hostelpass.org/internal/pass"
	"hostelpass.org/internal/store"
	"hostelpass.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("PASS_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Record store: file-backed by default, Postgres when a DSN is set.
	var (
		st    store.Store
		probe httpapi.ReadyProbe
	)
	if cfg.PgDSN != "" {
		pgStore, err := pg.Open(cfg.PgDSN)
		if err != nil {
			log.Fatalf("open pg store: %v", err)
		}
		defer pgStore.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgStore.Bootstrap(ctx); err != nil {
			cancel()
			log.Fatalf("bootstrap pg store: %v", err)
		}
		cancel()
		st = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		fileStore, err := store.OpenFile(cfg.DataDir)
		if err != nil {
			log.Fatalf("open file store: %v", err)
		}
		st = fileStore
	}

	enricher := enrich.New(cfg.OpenAIKey, cfg.OpenAIModel, cfg.EnrichTimeout)
	if cfg.OpenAIKey == "" {
		log.Printf("enrichment disabled (no OPENAI_API_KEY); annotations use the local fallback")
	}

	notes := notify.NewService(st)
	passes := pass.NewService(st, notes, enricher)

	fd := feed.New()
	stopFeed := fd.Start(st, cfg.PollEvery)
	defer stopFeed()

	api := httpapi.New(probe, version, passes, notes, enricher, fd)

	// No WriteTimeout: /v1/feed holds the connection open for SSE.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting hostelpass-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
