package main

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"claimflow/internal/analysis"
	"claimflow/internal/database"
	"claimflow/internal/database/migration"
	"claimflow/internal/notification"
	"claimflow/internal/queue"
	"claimflow/internal/repository/postgres"
	"claimflow/internal/rules"
	"claimflow/internal/service"
)

// services is the subset of the API's composition claimctl needs.
type services struct {
	db     *sql.DB
	engine *rules.Engine
	docs   service.DocumentService
	claims service.ClaimService
}

func (s *services) Close() error { return s.db.Close() }

// initServices connects to the database and wires the services without object
// storage. claimctl never uploads or deletes files. Notifications are always
// published to the Postgres queue so a running API picks them up.
func initServices(ctx context.Context) (*services, error) {
	logger := zap.L()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		db.Close()
		return nil, err
	}

	docRepo := postgres.NewDocumentPostgres(db)
	analysisRepo := postgres.NewAnalysisPostgres(db)
	history := notification.NewNotifier(postgres.NewNotificationPostgres(db), notification.NewLogMailer(logger), notification.Recipients{}, logger)

	// no caching: every command is a fresh process
	engine := rules.NewEngine(postgres.NewRulePostgres(db), 0, logger)
	broker := queue.NewPostgresBroker(db, queue.PostgresOptions{MaxAttempts: cfg.Queue.MaxAttempts}, nil, logger)

	return &services{
		db:     db,
		engine: engine,
		docs:   service.NewDocumentService(nil, docRepo, broker, history, logger),
		claims: service.NewClaimService(docRepo, analysisRepo, analysis.NewAnalyzer(engine, analysisRepo, logger), engine, logger),
	}, nil
}
