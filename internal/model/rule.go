package model

import "time"

// BusinessRule is an externally managed eligibility rule.
// Lower Priority values are evaluated first.
type BusinessRule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Condition   string     `json:"condition"`
	Action      string     `json:"action"`
	Priority    int        `json:"priority"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// BusinessRuleResult is one rule's verdict within an analysis.
type BusinessRuleResult struct {
	RuleID      string    `json:"rule_id"`
	RuleName    string    `json:"rule_name"`
	Passed      bool      `json:"passed"`
	Reason      string    `json:"reason"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
