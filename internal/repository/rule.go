package repository

import (
	"context"

	"claimflow/internal/model"
)

// RuleRepository stores business rules.
type RuleRepository interface {
	// ListActive returns active rules ordered by ascending priority.
	ListActive(ctx context.Context) ([]model.BusinessRule, error)
	ListAll(ctx context.Context) ([]model.BusinessRule, error)
	Create(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error)
	// Upsert creates the rule or replaces the one with the same name.
	Upsert(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error)
}
