// Package rules evaluates the configured business rules against a claim's evidence.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository"
)

type snapshot struct {
	rules    []model.BusinessRule
	loadedAt time.Time
}

// Engine owns the active rule set. Active rules are read through a TTL cache
// that is dropped whenever a rule is written through the engine.
type Engine struct {
	repo       repository.RuleRepository
	ttl        time.Duration
	cache      atomic.Pointer[snapshot]
	evaluators map[Kind]evaluator
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an engine. A ttl of zero disables caching.
func NewEngine(repo repository.RuleRepository, ttl time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		repo:       repo,
		ttl:        ttl,
		evaluators: builtins,
		logger:     logger,
		now:        time.Now,
	}
}

// ActiveRules returns active rules in ascending priority.
func (e *Engine) ActiveRules(ctx context.Context) ([]model.BusinessRule, error) {
	if snap := e.cache.Load(); snap != nil && e.ttl > 0 && e.now().Sub(snap.loadedAt) < e.ttl {
		return snap.rules, nil
	}

	all, err := e.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]model.BusinessRule, 0, len(all))
	for _, r := range all {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Priority < active[j].Priority })

	if e.ttl > 0 {
		e.cache.Store(&snapshot{rules: active, loadedAt: e.now()})
	}
	return active, nil
}

// Invalidate drops the cached rule set.
func (e *Engine) Invalidate() { e.cache.Store(nil) }

// Evaluate runs one rule. It never fails: an evaluator fault becomes a failed result.
func (e *Engine) Evaluate(rule model.BusinessRule, in Input) (res model.BusinessRuleResult) {
	res = model.BusinessRuleResult{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		EvaluatedAt: e.now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			err := apperr.New(apperr.KindRuleEvaluation, fmt.Sprint(r))
			e.logger.Error("rule evaluator panicked", zap.String("rule", rule.Name), zap.Error(err))
			res.Passed = false
			res.Reason = "evaluation error: " + apperr.MessageOf(err)
		}
	}()

	eval, ok := e.evaluators[ResolveKind(rule.Name)]
	if !ok {
		res.Passed = true
		res.Reason = reasonNotImplemented
		return res
	}

	out, err := eval(in)
	if err != nil {
		err = apperr.Wrap(apperr.KindRuleEvaluation, err, rule.Name)
		e.logger.Error("rule evaluation failed", zap.String("rule", rule.Name), zap.Error(err))
		res.Reason = "evaluation error: " + err.Error()
		return res
	}
	res.Passed = out.Passed
	res.Reason = out.Reason
	e.logger.Debug("rule evaluated",
		zap.String("rule", rule.Name), zap.Bool("passed", res.Passed), zap.String("reason", res.Reason))
	return res
}

// EvaluateAll evaluates every active rule in priority order.
func (e *Engine) EvaluateAll(ctx context.Context, in Input) ([]model.BusinessRuleResult, error) {
	active, err := e.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]model.BusinessRuleResult, 0, len(active))
	for _, r := range active {
		results = append(results, e.Evaluate(r, in))
	}
	return results, nil
}

// ListAll returns every stored rule, active or not.
func (e *Engine) ListAll(ctx context.Context) ([]model.BusinessRule, error) {
	return e.repo.ListAll(ctx)
}

// CreateRule validates and stores a new rule.
func (e *Engine) CreateRule(ctx context.Context, rule *model.BusinessRule) (*model.BusinessRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	created, err := e.repo.Create(ctx, rule)
	if err != nil {
		return nil, err
	}
	e.Invalidate()
	e.logger.Info("business rule created",
		zap.String("rule", created.Name), zap.String("kind", ResolveKind(created.Name).String()))
	return created, nil
}

// Seed upserts rules by name and returns how many were written.
func (e *Engine) Seed(ctx context.Context, rules []model.BusinessRule) (int, error) {
	for i := range rules {
		if err := validateRule(&rules[i]); err != nil {
			return 0, err
		}
	}
	n := 0
	for i := range rules {
		if _, err := e.repo.Upsert(ctx, &rules[i]); err != nil {
			e.Invalidate()
			return n, err
		}
		n++
	}
	e.Invalidate()
	return n, nil
}

func validateRule(rule *model.BusinessRule) error {
	if rule == nil {
		return apperr.InvalidInput("rule is required")
	}
	var missing []string
	if strings.TrimSpace(rule.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(rule.Condition) == "" {
		missing = append(missing, "condition")
	}
	if strings.TrimSpace(rule.Action) == "" {
		missing = append(missing, "action")
	}
	if len(missing) > 0 {
		return apperr.InvalidInput("rule " + strings.Join(missing, ", ") + " must not be empty")
	}
	return nil
}
