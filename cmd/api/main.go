package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"claimflow/internal/analysis"
	"claimflow/internal/config"
	"claimflow/internal/database"
	"claimflow/internal/database/migration"
	"claimflow/internal/extraction"
	handlers "claimflow/internal/http/handler"
	"claimflow/internal/http/middleware"
	"claimflow/internal/notification"
	"claimflow/internal/otel"
	"claimflow/internal/pipeline"
	"claimflow/internal/queue"
	"claimflow/internal/repository/postgres"
	"claimflow/internal/resilience"
	"claimflow/internal/rules"
	"claimflow/internal/service"
	"claimflow/internal/storage"
	"claimflow/internal/validation"
)

// @title			Claim API
// @version		1.0
// @description	Travel-insurance flight-delay claim processing.
// @BasePath		/
func main() {
	cfg := config.Load()

	logger, err := config.InitLogger(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("claimflow stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "claimflow", logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		return err
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	queueMetrics, err := queue.NewMetrics(reg)
	if err != nil {
		return err
	}
	pipelineMetrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	broker := newBroker(cfg.Queue, db, queueMetrics, logger)

	docRepo := postgres.NewDocumentPostgres(db)
	ruleRepo := postgres.NewRulePostgres(db)
	analysisRepo := postgres.NewAnalysisPostgres(db)
	notificationRepo := postgres.NewNotificationPostgres(db)

	engine := rules.NewEngine(ruleRepo, config.Seconds(cfg.Pipeline.RuleCacheTTLSec), logger)
	if cfg.Pipeline.RulesSeedFile != "" {
		seed, err := rules.LoadSeedFile(cfg.Pipeline.RulesSeedFile)
		if err != nil {
			return err
		}
		n, err := engine.Seed(ctx, seed)
		if err != nil {
			return err
		}
		logger.Info("business rules seeded", zap.Int("count", n), zap.String("file", cfg.Pipeline.RulesSeedFile))
	}

	analyzer := analysis.NewAnalyzer(engine, analysisRepo, logger)
	notifier := notification.NewNotifier(notificationRepo, newMailer(cfg.SMTP, logger), notification.Recipients{
		Analyst: cfg.SMTP.AnalystEmail,
		Manager: cfg.SMTP.ManagerEmail,
	}, logger)

	docSvc := service.NewDocumentService(objStore, docRepo, broker, notifier, logger)
	claimSvc := service.NewClaimService(docRepo, analysisRepo, analyzer, engine, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Pipeline.Enabled {
		coordinator := pipeline.NewCoordinator(pipeline.Deps{
			Documents: docRepo,
			Storage:   objStore,
			Extractor: extraction.NewAdapter(
				extraction.NewVisionClient(cfg.OCR.Endpoint, cfg.OCR.APIKey, config.Seconds(cfg.OCR.TimeoutSec)),
				logger,
			),
			Validator: newAggregator(cfg, logger),
			Analyzer:  analyzer,
			Notifier:  notifier,
			Broker:    broker,
			Metrics:   pipelineMetrics,
			Logger:    logger,
		}, pipeline.Options{
			StageTimeout:     config.Seconds(cfg.Pipeline.StageTimeoutSec),
			AutoDecide:       cfg.Pipeline.AutoDecide,
			MaxDocumentBytes: int64(cfg.Pipeline.MaxDocumentMB) << 20,
			Workers:          cfg.Queue.Workers,
		})
		g.Go(func() error {
			return coordinator.Run(gctx)
		})
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    (cfg.Pipeline.MaxDocumentMB + 1) << 20,
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Services{
		DB:        db,
		Documents: docSvc,
		Claims:    claimSvc,
		Metrics:   reg,
	})

	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("http server listening", zap.String("addr", addr))
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("claimflow stopped cleanly")
	return nil
}

func newBroker(cfg config.QueueConfig, db *sql.DB, metrics *queue.Metrics, logger *zap.Logger) queue.Broker {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory queue; messages do not survive a restart")
		return queue.NewMemoryBroker(cfg.MaxAttempts, metrics, logger)
	}
	return queue.NewPostgresBroker(db, queue.PostgresOptions{
		PollInterval: time.Duration(cfg.PollMillis) * time.Millisecond,
		Visibility:   config.Seconds(cfg.VisibilitySec),
		MaxAttempts:  cfg.MaxAttempts,
	}, metrics, logger)
}

func newMailer(cfg config.SMTPConfig, logger *zap.Logger) notification.Mailer {
	if cfg.Host == "" {
		return notification.NewLogMailer(logger)
	}
	return notification.NewSMTPMailer(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From)
}

func newAggregator(cfg *config.AppConfig, logger *zap.Logger) *validation.Aggregator {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "flight-api",
		FailureThreshold: cfg.FlightAPI.BreakerThreshold,
		ResetTimeout:     config.Seconds(cfg.FlightAPI.BreakerResetSec),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	flights := validation.NewFlightAPIClient(validation.FlightAPIOptions{
		BaseURL:    cfg.FlightAPI.BaseURL,
		APIKey:     cfg.FlightAPI.APIKey,
		Timeout:    config.Seconds(cfg.FlightAPI.TimeoutSec),
		RatePerSec: cfg.FlightAPI.RatePerSec,
		Burst:      cfg.FlightAPI.Burst,
		Breaker:    breaker,
	})

	timeout := config.Seconds(cfg.Registry.TimeoutSec)
	return validation.NewAggregator(flights,
		newRegistry("primary", cfg.Registry.PrimaryURL, timeout),
		newRegistry("secondary", cfg.Registry.SecondaryURL, timeout),
		timeout, logger)
}

// newRegistry falls back to the name-presence check when no registry URL is configured.
func newRegistry(name, url string, timeout time.Duration) validation.PassengerRegistry {
	if url == "" {
		return validation.NameRegistry{Name: name}
	}
	return validation.NewHTTPRegistry(name, url, timeout)
}
