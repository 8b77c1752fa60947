package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"peopledesk.org/internal/activity"
	"peopledesk.org/internal/attendance"
	"peopledesk.org/internal/auth"
	"peopledesk.org/internal/directory"
	"peopledesk.org/internal/docshare"
	"peopledesk.org/internal/httpapi"
	"peopledesk.org/internal/mail"
	"peopledesk.org/internal/obs"
	"peopledesk.org/internal/store/pg"
	"peopledesk.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	addr := os.Getenv("PEOPLEDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	cfg := httpapi.Config{Version: version}

	var store *pg.Store
	if dsn := os.Getenv("PEOPLEDESK_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		cfg.Ready = httpapi.ReadyProbe{DB: store.DB()}
		cfg.Directory = store.Directory()
		cfg.Documents = store.Docshare()
		cfg.Activity = store.Activity()
		cfg.Attendance = store.Attendance()
		cfg.Auth = auth.NewService(store.Auth(), newSender())
	} else {
		// In-memory stack for local runs without Postgres.
		log.Println("PEOPLEDESK_PG_DSN not set; using in-memory services")
		authStore := auth.NewInMemoryStore()
		dir := directory.NewInMemory(authStore)
		docs := docshare.NewInMemory(dir)
		cfg.Directory = dir
		cfg.Documents = docs
		cfg.Activity = activity.NewInMemory(dir, docs)
		cfg.Attendance = attendance.NewInMemory(dir)
		cfg.Auth = auth.NewService(authStore, newSender())
	}

	if endpoint := os.Getenv("PEOPLEDESK_FACE_ENDPOINT"); endpoint != "" {
		cfg.Matcher = attendance.NewHTTPMatcher(endpoint)
	}
	cfg.Stream = stream.New()

	api := httpapi.New(cfg)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE clients hold the response open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting peopledesk-api %s on %s", version, srv.Addr)

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
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}

func newSender() mail.Sender {
	host := os.Getenv("PEOPLEDESK_SMTP_HOST")
	if host == "" {
		return &mail.ConsoleSender{Logf: log.Printf}
	}
	port := 587
	if raw := os.Getenv("PEOPLEDESK_SMTP_PORT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			port = v
		}
	}
	return mail.NewSMTPSender(
		host,
		port,
		os.Getenv("PEOPLEDESK_SMTP_USER"),
		os.Getenv("PEOPLEDESK_SMTP_PASSWORD"),
		os.Getenv("PEOPLEDESK_SMTP_FROM"),
	)
}
