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

	"venueops-platform/internal/alerts"
	"venueops-platform/internal/auth"
	"venueops-platform/internal/config"
	"venueops-platform/internal/detect"
	"venueops-platform/internal/httpapi"
	"venueops-platform/internal/ledger"
	"venueops-platform/internal/reports"
	"venueops-platform/pkg/logger"
	"venueops-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services
	thresholds := detect.DefaultThresholds()
	if cfg.Detect.DrawerWarnCents > 0 {
		thresholds.DrawerWarnCents = cfg.Detect.DrawerWarnCents
	}
	if cfg.Detect.DrawerCritCents > 0 {
		thresholds.DrawerCritCents = cfg.Detect.DrawerCritCents
	}

	ledgerSvc := ledger.NewService(ledger.NewPostgresRepo(db))
	alertSvc := alerts.NewService(alerts.NewPostgresRepo(db))
	detectRepo := detect.NewPostgresRepo(db)
	engine := detect.NewEngine(detectRepo, thresholds)
	reportGen := reports.NewGenerator(reports.NewPostgresRepo(db), detectRepo, thresholds)

	h := httpapi.Handlers{
		Auth:    authManager,
		Engine:  engine,
		Sink:    detect.Sink{Alerts: alertSvc, Ledger: ledgerSvc},
		Cache:   detect.Cache{Client: httpapi.RedisCacheClient{Client: rdb}, TTL: cfg.Detect.SweepCacheTTL},
		Guard:   httpapi.RedisSweepGuard{Client: rdb},
		Ledger:  ledgerSvc,
		Alerts:  alertSvc,
		Reports: reportGen,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
