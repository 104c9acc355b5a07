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

	"github.com/hibiken/asynq"

	"github.com/fleetledger/fleetledger/internal/app"
	"github.com/fleetledger/fleetledger/internal/observability"
	"github.com/fleetledger/fleetledger/internal/platform/cache"
	"github.com/fleetledger/fleetledger/internal/platform/db"
	"github.com/fleetledger/fleetledger/internal/reports"
	"github.com/fleetledger/fleetledger/internal/reports/export"
	reporthttp "github.com/fleetledger/fleetledger/internal/reports/http"
	"github.com/fleetledger/fleetledger/jobs"
	"github.com/fleetledger/fleetledger/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	var sourceCache *reports.Cache
	if redisClient != nil {
		sourceCache = reports.NewCache(redisClient, cfg.ReportCacheTTL)
		if err := sourceCache.ListenForInvalidation(ctx, reports.BumpChannel); err != nil {
			logger.Warn("subscribe cache bumps", slog.Any("error", err))
		}
	}
	reportService := app.NewReportService(cfg, dbpool, sourceCache, logger, metrics.Reports())

	var pdfService reporthttp.PDFService
	var gotenberg *report.Client
	if cfg.GotenbergURL != "" {
		gotenberg, err = report.NewClient(cfg.GotenbergURL, report.WithTimeout(cfg.GotenbergTimeout))
		if err != nil {
			logger.Error("init gotenberg client", slog.Any("error", err))
			os.Exit(1)
		}
		renderer, err := export.NewPDFRenderer(gotenberg)
		if err != nil {
			logger.Error("parse report templates", slog.Any("error", err))
			os.Exit(1)
		}
		pdfService = renderer
	} else {
		logger.Info("GOTENBERG_URL empty, PDF export disabled")
	}

	reportHandler := reporthttp.NewHandler(logger, reportService, pdfService, reporthttp.Config{
		RequestTimeout: cfg.ReportBuildTimeout,
		ExportsPerMin:  cfg.ReportExportsPerMin,
	})
	pdfHandler := report.NewHandler(gotenberg, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	checks := map[string]app.ReadinessCheck{
		"postgres": dbpool.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reportHandler,
		PDFHandler:    pdfHandler,
		JobHandler:    jobHandler,
		Metrics:       metrics,
		Checks:        checks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
