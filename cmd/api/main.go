package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/coter/internal/auth"
	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/db"
	httpx "github.com/geocoder89/coter/internal/http"
	"github.com/geocoder89/coter/internal/http/handlers"
	"github.com/geocoder89/coter/internal/http/middlewares"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/geocoder89/coter/internal/redisclient"
	"github.com/geocoder89/coter/internal/repo/postgres"
	"github.com/geocoder89/coter/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	if err := db.Migrate(ctx, cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL, cfg.DB.MaxConns)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	hasher := security.NewHasher(cfg.BcryptCost)

	if err := db.EnsureSeedTherapist(ctx, pool, cfg, hasher); err != nil {
		log.Error("seed therapist failed", "err", err)
		os.Exit(1)
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTLifetime)
	if err != nil {
		log.Error("token manager init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	accounts := postgres.NewAccountsRepo(pool, prom)

	ready := map[string]handlers.Pinger{"db": pool}

	// Redis is optional: without it the limiter is per-process.
	var limiter middlewares.Limiter = middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	if cfg.Redis.Addr != "" {
		rctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		rdb, err := redisclient.Connect(rctx, redisclient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cancel()

		if err != nil {
			log.Warn("redis unavailable, using in-memory rate limiter", "err", err)
		} else {
			defer rdb.Close()
			limiter = middlewares.NewRedisRateLimiter(rdb.Cmdable(), cfg.AuthRateLimit, cfg.AuthRateWindow)
			ready["redis"] = rdb
		}
	}

	router := httpx.NewRouter(httpx.Deps{
		Accounts: accounts,
		Assigner: postgres.NewAssignmentsRepo(pool, jobsRepo, prom),
		Goals:    postgres.NewGoalsRepo(pool, prom),
		Tasks:    postgres.NewTasksRepo(pool, prom),
		CheckIns: postgres.NewCheckInsRepo(pool, prom),
		Messages: postgres.NewMessagesRepo(pool, jobsRepo, prom),

		Hasher:     hasher,
		Tokens:     tokens,
		InviteCode: cfg.TherapistInviteCode,

		AuthLimiter:  limiter,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,

		Prom:        prom,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ready:       ready,
		ServiceName: cfg.ServiceName,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server failed", "err", err)
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}
