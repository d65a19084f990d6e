package postgres

import (
	"context"
	"database/sql"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

const ruleColumns = `id, name, description, condition, action, priority, is_active, created_at, updated_at`

// RulePostgres is the PostgreSQL business rule store.
type RulePostgres struct {
	db *sql.DB
}

func NewRulePostgres(db *sql.DB) *RulePostgres {
	return &RulePostgres{db: db}
}

var _ repository.RuleRepository = (*RulePostgres)(nil)

func scanRule(s scanner) (*model.BusinessRule, error) {
	var (
		r       model.BusinessRule
		updated sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Description, &r.Condition, &r.Action, &r.Priority, &r.IsActive, &r.CreatedAt, &updated); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		r.UpdatedAt = &t
	}
	return &r, nil
}

func (r *RulePostgres) list(ctx context.Context, q string) ([]model.BusinessRule, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperr.Persistence(err, "list rules")
	}
	defer rows.Close()

	out := make([]model.BusinessRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, apperr.Persistence(err, "scan rule")
		}
		out = append(out, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence(err, "list rules")
	}
	return out, nil
}

func (r *RulePostgres) ListActive(ctx context.Context) ([]model.BusinessRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM business_rules WHERE is_active ORDER BY priority ASC, name ASC`)
}

func (r *RulePostgres) ListAll(ctx context.Context) ([]model.BusinessRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM business_rules ORDER BY priority ASC, name ASC`)
}

// Create inserts a rule. A duplicate name is a conflict.
func (r *RulePostgres) Create(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	q := `
		INSERT INTO business_rules (id, name, description, condition, action, priority, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + ruleColumns
	out, err := scanRule(r.db.QueryRowContext(ctx, q,
		rule.ID, rule.Name, rule.Description, rule.Condition, rule.Action, rule.Priority, rule.IsActive, rule.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "rule "+rule.Name+" already exists")
		}
		return nil, apperr.Persistence(err, "insert rule")
	}
	return out, nil
}

func (r *RulePostgres) Upsert(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	q := `
		INSERT INTO business_rules (id, name, description, condition, action, priority, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description,
		    condition   = EXCLUDED.condition,
		    action      = EXCLUDED.action,
		    priority    = EXCLUDED.priority,
		    is_active   = EXCLUDED.is_active,
		    updated_at  = now()
		RETURNING ` + ruleColumns
	out, err := scanRule(r.db.QueryRowContext(ctx, q,
		rule.ID, rule.Name, rule.Description, rule.Condition, rule.Action, rule.Priority, rule.IsActive, rule.CreatedAt))
	if err != nil {
		return nil, apperr.Persistence(err, "upsert rule")
	}
	return out, nil
}
