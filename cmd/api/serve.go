package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"certdocs/internal/access"
	"certdocs/internal/audit"
	"certdocs/internal/config"
	"certdocs/internal/database"
	"certdocs/internal/database/migration"
	handlers "certdocs/internal/http/handler"
	"certdocs/internal/http/middleware"
	"certdocs/internal/logging"
	"certdocs/internal/otel"
	"certdocs/internal/repository/postgres"
	"certdocs/internal/service"
	"certdocs/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Ensure the database schema exists before serving",
			Value: true,
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.Location())

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cCtx.Bool("migrate") {
		if err := migration.EnsureMigrated(ctx, db, logger.WithField("db_host", cfg.Database.Host)); err != nil {
			return err
		}
	}

	objStore, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	emitter, err := audit.NewEmitter(audit.NewPostgresSink(db), logger, reg)
	if err != nil {
		return err
	}
	workflowMetrics, err := service.NewMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	docSvc := service.NewDocumentService(
		objStore,
		postgres.NewDocumentPostgres(db),
		postgres.NewApplicationPostgres(db),
		emitter,
		service.WithLogger(logger),
		service.WithMetrics(workflowMetrics),
		service.WithEvaluator(access.Evaluator{PrivilegedWrite: cfg.Workflow.PrivilegedWrite}),
		service.WithBatchConcurrency(cfg.Workflow.BatchConcurrency),
		service.WithPresignExpiry(cfg.Workflow.PresignExpiry),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.UploadMaxBodyBytes,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger.WithField("component", "http")))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	handlers.RegisterRoutes(app, db, docSvc)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.WithField("addr", addr).Info("server starting")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
