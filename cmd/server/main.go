package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sfme/evaluation/internal/config"
	"sfme/evaluation/internal/crypto"
	"sfme/evaluation/internal/db"
	evalhttp "sfme/evaluation/internal/http"
	"sfme/evaluation/internal/jobs"
	"sfme/evaluation/internal/mail"
	"sfme/evaluation/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	crypto.Pepper = cfg.PasswordPepper

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("redis unreachable, falling back to in-process rate limiting: %v", err)
			rdb = nil
		}
		cancel()
	}
	limiter := evalhttp.NewLoginLimiter(rdb, cfg.LoginRateMax, cfg.LoginRateWindow)

	var mailer mail.Mailer
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom)
	} else {
		log.Println("SMTP_ADDR not set, mail goes to the log")
		mailer = mail.NewLogMailer(cfg.AppName)
	}

	cleanup := jobs.NewCleanup(store, cfg.CleanupInterval, cfg.SessionIdleTimeout)
	go cleanup.Run(ctx)

	server := evalhttp.NewServer(cfg, store, mailer, limiter)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
