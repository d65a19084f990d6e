package migration

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  file_name         TEXT        NOT NULL,
  content_type      TEXT        NOT NULL,
  size              BIGINT      NOT NULL CHECK (size >= 0),
  storage_path      TEXT        NOT NULL UNIQUE,
  status            TEXT        NOT NULL DEFAULT 'Uploaded',
  status_reason     TEXT        NOT NULL DEFAULT '',
  uploaded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  processed_at      TIMESTAMPTZ,
  passenger_name    TEXT        NOT NULL DEFAULT '',
  passenger_email   TEXT        NOT NULL DEFAULT '',
  flight_number     TEXT        NOT NULL DEFAULT '',
  extracted_data    JSONB,
  validation_result JSONB,
  analysis_result   JSONB
);`,
	},
	{
		Name: "create_index_documents_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);`,
	},
	{
		Name: "create_index_documents_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at);`,
	},
	{
		Name: "create_table_business_rules",
		SQL: `CREATE TABLE IF NOT EXISTS business_rules (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name        TEXT        NOT NULL UNIQUE,
  description TEXT        NOT NULL DEFAULT '',
  condition   TEXT        NOT NULL,
  action      TEXT        NOT NULL,
  priority    INTEGER     NOT NULL DEFAULT 0,
  is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_business_rules_active_priority",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_business_rules_active_priority ON business_rules (is_active, priority);`,
	},
	{
		Name: "seed_business_rules",
		SQL: `INSERT INTO business_rules (name, description, condition, action, priority, is_active) VALUES
  ('delay_threshold', 'Flight delay must reach four hours', 'delay_minutes >= 240', 'approve', 1, TRUE),
  ('passenger_validation', 'Passenger must be confirmed by internal registries', 'passenger_found', 'approve', 2, TRUE),
  ('flight_status', 'Flight must be confirmed by the flight authority', 'flight_valid', 'approve', 3, TRUE),
  ('ticket_price_limit', 'Ticket price must not exceed 10000.00', 'ticket_price <= 10000', 'approve', 4, TRUE)
ON CONFLICT (name) DO NOTHING;`,
	},
	{
		Name: "create_table_analysis_records",
		SQL: `CREATE TABLE IF NOT EXISTS analysis_records (
  id             UUID             PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id    UUID             NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  is_eligible    BOOLEAN          NOT NULL,
  recommendation TEXT             NOT NULL,
  confidence     DOUBLE PRECISION NOT NULL,
  reasoning      TEXT             NOT NULL,
  request_key    TEXT             UNIQUE,
  analyzed_at    TIMESTAMPTZ      NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_analysis_records_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_analysis_records_document_id ON analysis_records (document_id, analyzed_at);`,
	},
	{
		Name: "create_table_notifications",
		SQL: `CREATE TABLE IF NOT EXISTS notifications (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id    UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  recipient_type TEXT        NOT NULL,
  recipient      TEXT        NOT NULL,
  subject        TEXT        NOT NULL,
  body           TEXT        NOT NULL,
  type           TEXT        NOT NULL,
  status         TEXT        NOT NULL DEFAULT 'pending',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  sent_at        TIMESTAMPTZ,
  error_message  TEXT        NOT NULL DEFAULT '',
  UNIQUE (document_id, type, recipient_type)
);`,
	},
	{
		Name: "create_table_queue_messages",
		SQL: `CREATE TABLE IF NOT EXISTS queue_messages (
  id            BIGSERIAL   PRIMARY KEY,
  queue         TEXT        NOT NULL,
  payload       JSONB       NOT NULL,
  attempts      INTEGER     NOT NULL DEFAULT 0,
  available_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_error    TEXT        NOT NULL DEFAULT ''
);`,
	},
	{
		Name: "create_index_queue_messages_claim",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_queue_messages_claim ON queue_messages (queue, available_at);`,
	},
}

// EnsureMigrated runs every step when the documents table is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *zap.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check")

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return eris.Wrap(err, "failed to check sentinel table")
	}

	if exists {
		log.Info("db_migration_skip", zap.String("msg", "schema already exists"), zap.Duration("duration", time.Since(start)))
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("step_duration", time.Since(stepStart)),
			)
			return eris.Wrapf(err, "migration step %s failed", step.Name)
		}
		log.Debug("db_migration_step", zap.String("migration_step", step.Name), zap.Duration("step_duration", time.Since(stepStart)))
	}

	log.Info("db_migration_success", zap.Int("steps", len(steps)), zap.Duration("duration", time.Since(start)))
	return nil
}
