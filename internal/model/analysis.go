package model

import "time"

// Recommendation tiers, selected in this order.
const (
	RecommendApprove           = "APPROVE — high confidence"
	RecommendApproveWithReview = "APPROVE WITH REVIEW — manual check required"
	RecommendReject            = "REJECT — not eligible"
	RecommendManualReview      = "MANUAL REVIEW — low confidence"
)

// AnalysisResult is the eligibility verdict for one document. Confidence is 0-1.
type AnalysisResult struct {
	DocumentID     string               `json:"document_id"`
	IsEligible     bool                 `json:"is_eligible"`
	Recommendation string               `json:"recommendation"`
	Confidence     float64              `json:"confidence"`
	Reasoning      string               `json:"reasoning"`
	RulesApplied   []BusinessRuleResult `json:"business_rules_applied"`
	AnalyzedAt     time.Time            `json:"analysis_timestamp"`
}

// AnalysisRecord is the flattened audit row persisted for every analysis.
// RequestKey, when set, makes the insert idempotent.
type AnalysisRecord struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	IsEligible     bool      `json:"is_eligible"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	RequestKey     string    `json:"request_key,omitempty"`
	AnalyzedAt     time.Time `json:"analysis_timestamp"`
}
