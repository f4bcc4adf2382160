package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imgfs/internal/auth"
	"imgfs/internal/config"
	"imgfs/internal/httpapi"
	"imgfs/internal/imgfs"
	"imgfs/internal/service"
	"imgfs/internal/snapshot"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := imgfs.Open(cfg.StorePath, imgfs.ReadWrite, imgfs.Options{})
	if err != nil {
		log.Fatalf("open %s: %v", cfg.StorePath, err)
	}
	defer st.Close()
	hdr := st.Header()
	log.Printf("opened %s: %d/%d images, version %d", cfg.StorePath, hdr.ValidCount, hdr.Capacity, hdr.Version)

	snapshots, err := snapshot.NewStorage(ctx, cfg.Snapshot)
	if err != nil {
		log.Fatalf("init snapshot storage: %v", err)
	}

	svc := service.New(st, snapshots, log.Default())

	worker := snapshot.NewWorker(svc, snapshot.Config{
		Enabled:      snapshots != nil,
		StartupDelay: cfg.Snapshot.Delay,
		Interval:     cfg.Snapshot.Interval,
	}, log.Default())
	go worker.Run(ctx)

	authn := auth.NewAuthenticator(cfg.AdminToken)
	if !authn.Enabled() {
		log.Printf("warning: ADMIN_TOKEN is empty, insert and delete are open to everyone")
	}

	api := httpapi.New(cfg, svc, authn, log.Default())
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewEcho(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
		_ = st.Close()
		os.Exit(1)
	}
	log.Printf("server stopped")
}
