package rules

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"claimflow/internal/apperr"
	"claimflow/internal/model"
	"claimflow/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEngine(repo *mocks.MockRuleRepository, ttl time.Duration) (*Engine, *time.Time) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(repo, ttl, nil)
	e.now = func() time.Time { return clock }
	return e, &clock
}

func TestEngine_ActiveRules_OrdersAndFilters(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	repo.On("ListActive", mock.Anything).Return([]model.BusinessRule{
		{Name: "flight_status", Priority: 3, IsActive: true},
		{Name: "retired", Priority: 0, IsActive: false},
		{Name: "delay_threshold", Priority: 1, IsActive: true},
	}, nil)
	e, _ := newTestEngine(repo, 0)

	rules, err := e.ActiveRules(context.Background())

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "delay_threshold", rules[0].Name)
	assert.Equal(t, "flight_status", rules[1].Name)
}

func TestEngine_ActiveRules_CachesUntilTTL(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	repo.On("ListActive", mock.Anything).Return([]model.BusinessRule{{Name: "delay_threshold", IsActive: true}}, nil)
	e, clock := newTestEngine(repo, time.Minute)
	ctx := context.Background()

	_, err := e.ActiveRules(ctx)
	require.NoError(t, err)
	_, err = e.ActiveRules(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ListActive", 1)

	*clock = clock.Add(2 * time.Minute)
	_, err = e.ActiveRules(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "ListActive", 2)
}

func TestEngine_CreateRule_InvalidatesCache(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	repo.On("ListActive", mock.Anything).Return([]model.BusinessRule{{Name: "delay_threshold", IsActive: true}}, nil)
	rule := &model.BusinessRule{Name: "weather_check", Condition: "storm", Action: "approve", Priority: 5, IsActive: true}
	repo.On("Create", mock.Anything, rule).Return(rule, nil)
	e, _ := newTestEngine(repo, time.Hour)
	ctx := context.Background()

	_, _ = e.ActiveRules(ctx)
	created, err := e.CreateRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, "weather_check", created.Name)
	_, _ = e.ActiveRules(ctx)

	repo.AssertNumberOfCalls(t, "ListActive", 2)
}

func TestEngine_CreateRule_RejectsBlankFields(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	e, _ := newTestEngine(repo, 0)

	_, err := e.CreateRule(context.Background(), &model.BusinessRule{Name: "x", Condition: " "})

	assert.True(t, apperr.Is(err, apperr.KindValidationInput))
	assert.Contains(t, err.Error(), "condition, action")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEngine_Evaluate_Unrecognized(t *testing.T) {
	e, _ := newTestEngine(new(mocks.MockRuleRepository), 0)

	res := e.Evaluate(model.BusinessRule{ID: "r-9", Name: "weather_check"}, Input{})

	assert.True(t, res.Passed)
	assert.Equal(t, "not implemented — assume approved", res.Reason)
	assert.Equal(t, "r-9", res.RuleID)
}

func TestEngine_Evaluate_RecoversFaults(t *testing.T) {
	e, _ := newTestEngine(new(mocks.MockRuleRepository), 0)
	e.evaluators = map[Kind]evaluator{
		KindFlightStatus: func(Input) (Outcome, error) { panic("nil registry") },
		KindDelayThreshold: func(Input) (Outcome, error) {
			return Outcome{}, errors.New("bad data")
		},
	}

	res := e.Evaluate(model.BusinessRule{Name: "flight_status"}, Input{})
	assert.False(t, res.Passed)
	assert.Equal(t, "evaluation error: nil registry", res.Reason)

	res = e.Evaluate(model.BusinessRule{Name: "delay_threshold"}, Input{})
	assert.False(t, res.Passed)
	assert.True(t, strings.HasSuffix(res.Reason, "bad data"))
}

func TestEngine_EvaluateAll(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	repo.On("ListActive", mock.Anything).Return([]model.BusinessRule{
		{ID: "1", Name: "delay_threshold", Priority: 1, IsActive: true},
		{ID: "4", Name: "ticket_price_limit", Priority: 4, IsActive: true},
	}, nil)
	e, _ := newTestEngine(repo, 0)

	results, err := e.EvaluateAll(context.Background(), Input{
		FlightData: &model.FlightData{TicketPrice: floatPtr(500)},
		Validation: withDelay(intPtr(300)),
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "delay_threshold", results[0].RuleName)
	assert.True(t, results[0].Passed)
	assert.True(t, results[1].Passed)
}

func TestEngine_EvaluateAll_RepositoryError(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	repo.On("ListActive", mock.Anything).Return(nil, apperr.Persistence(errors.New("down"), "list rules"))
	e, _ := newTestEngine(repo, 0)

	_, err := e.EvaluateAll(context.Background(), Input{})

	assert.True(t, apperr.Is(err, apperr.KindPersistence))
}

func TestEngine_Seed(t *testing.T) {
	repo := new(mocks.MockRuleRepository)
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*model.BusinessRule")).
		Return(&model.BusinessRule{}, nil)
	e, _ := newTestEngine(repo, 0)

	n, err := e.Seed(context.Background(), []model.BusinessRule{
		{Name: "delay_threshold", Condition: "c", Action: "approve"},
		{Name: "flight_status", Condition: "c", Action: "approve"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	repo.AssertNumberOfCalls(t, "Upsert", 2)
}

func TestParseSeed(t *testing.T) {
	doc := `
rules:
  - name: delay_threshold
    condition: delay_minutes >= 240
    action: approve
    priority: 1
  - name: legacy
    condition: x
    action: approve
    priority: 9
    active: false
`
	rules, err := ParseSeed(strings.NewReader(doc))

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.True(t, rules[0].IsActive)
	assert.Equal(t, 1, rules[0].Priority)
	assert.False(t, rules[1].IsActive)

	_, err = ParseSeed(strings.NewReader(""))
	assert.True(t, apperr.Is(err, apperr.KindValidationInput))

	_, err = ParseSeed(strings.NewReader("rules: [1, 2"))
	assert.True(t, apperr.Is(err, apperr.KindValidationInput))
}

func TestLoadSeedFile_ShippedRules(t *testing.T) {
	rules, err := LoadSeedFile("../../configs/business_rules.yaml")

	require.NoError(t, err)
	require.Len(t, rules, 4)
	for _, r := range rules {
		assert.NotEqual(t, KindUnrecognized, ResolveKind(r.Name), r.Name)
	}
}
