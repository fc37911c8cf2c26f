package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"userdesk.org/internal/activity"
	"userdesk.org/internal/auth"
	"userdesk.org/internal/config"
	"userdesk.org/internal/httpapi"
	"userdesk.org/internal/obs"
	"userdesk.org/internal/store/memory"
	"userdesk.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Without a DSN the server runs on the in-memory store. Data lives until
	// restart, which is enough for local development.
	var (
		db        *sql.DB
		userStore auth.Store
		actStore  activity.Store
	)
	if cfg.DatabaseDSN != "" {
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		store := pg.New(db)
		userStore, actStore = store, store
	} else {
		log.Println("USERDESK_PG_DSN not set, using in-memory store")
		store := memory.New()
		userStore, actStore = store, store
	}

	tokens, err := auth.NewTokenService(&auth.TokenConfig{
		Secret: cfg.TokenSecret,
		TTL:    cfg.TokenTTL,
		Issuer: cfg.TokenIssuer,
	})
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	svc, err := auth.NewService(userStore, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	rec, err := activity.NewRecorder(actStore)
	if err != nil {
		log.Fatalf("activity recorder: %v", err)
	}

	api := httpapi.New(svc, rec, httpapi.ReadyProbe{DB: db}, httpapi.Options{
		Version:      version,
		CORSOrigins:  cfg.AllowedOrigins,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSecond,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting userdesk-api %s on %s", version, srv.Addr)

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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
