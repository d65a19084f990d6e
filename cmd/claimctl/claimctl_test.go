package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/model"
)

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"rules", "analyze", "approve", "reject", "status"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sub := map[string]bool{}
	for _, c := range rulesCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["list"])
	assert.True(t, sub["create"])
	assert.True(t, sub["seed"])

	seedFile, err := rulesSeedCmd.Flags().GetString("file")
	require.NoError(t, err)
	assert.Equal(t, "configs/business_rules.yaml", seedFile)
}

func TestDecisionCmd_RequiresDocumentID(t *testing.T) {
	cmd := decisionCmd("approve", "Approve a claim")
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"doc-1"}))

	reason := cmd.Flags().Lookup("reason")
	require.NotNil(t, reason)
	assert.Equal(t, "", reason.DefValue)
}

func ruleCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "create"}
	cmd.Flags().String("name", "", "")
	cmd.Flags().String("description", "", "")
	cmd.Flags().String("condition", "", "")
	cmd.Flags().String("action", "", "")
	cmd.Flags().Int("priority", 0, "")
	cmd.Flags().Bool("inactive", false, "")
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	return cmd
}

func TestRuleFromFlags(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		rule, err := ruleFromFlags(ruleCmd(t, map[string]string{
			"name":      "ticket_price_limit",
			"condition": "ticket_price <= 10000",
			"action":    "approve",
			"priority":  "4",
		}))

		require.NoError(t, err)
		assert.Equal(t, "ticket_price_limit", rule.Name)
		assert.Equal(t, 4, rule.Priority)
		assert.True(t, rule.IsActive)
	})

	t.Run("inactive", func(t *testing.T) {
		rule, err := ruleFromFlags(ruleCmd(t, map[string]string{
			"name": "x", "condition": "y", "action": "z", "inactive": "true",
		}))

		require.NoError(t, err)
		assert.False(t, rule.IsActive)
	})

	t.Run("missing condition", func(t *testing.T) {
		_, err := ruleFromFlags(ruleCmd(t, map[string]string{"name": "x", "action": "z"}))
		assert.Error(t, err)
	})
}

func TestFormatRules(t *testing.T) {
	var buf bytes.Buffer
	formatRules(&buf, []model.BusinessRule{
		{Name: "delay_threshold", Condition: "delay_hours >= 4", Action: "approve", Priority: 1, IsActive: true},
		{Name: "ticket_price_limit", Condition: "ticket_price <= 10000", Action: "approve", Priority: 4},
	})

	out := buf.String()
	assert.Contains(t, out, "PRIORITY")
	assert.Contains(t, out, "delay_threshold")
	assert.Contains(t, out, "delay_hours >= 4")
	assert.Contains(t, out, "false")
}

func TestFormatAnalysis(t *testing.T) {
	var buf bytes.Buffer
	formatAnalysis(&buf, &model.AnalysisResult{
		DocumentID:     "doc-1",
		IsEligible:     false,
		Recommendation: model.RecommendReject,
		Confidence:     0.4,
		Reasoning:      "rule 'delay_threshold' failed: delay of 2.00 hours does not meet the minimum of 4 hours",
		AnalyzedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RulesApplied: []model.BusinessRuleResult{
			{RuleName: "delay_threshold", Passed: false, Reason: "delay of 2.00 hours does not meet the minimum of 4 hours"},
			{RuleName: "flight_status", Passed: true, Reason: "flight confirmed by the flight authority"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, model.RecommendReject)
	assert.Contains(t, out, "0.40")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "flight_status")
	assert.Contains(t, out, "2026-03-01T12:00:00Z")
}

func TestFormatStatus(t *testing.T) {
	var buf bytes.Buffer
	formatStatus(&buf, model.DocumentStatusView{
		ID:          "doc-1",
		Status:      model.StatusError,
		Reason:      "ocr failed",
		LastUpdated: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "doc-1  Error")
	assert.Contains(t, out, "2026-03-01 12:30")
	assert.Contains(t, out, "reason: ocr failed")
}

func TestReadEvidence(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "evidence.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"flight_data": {"flight_number": "LA3456", "passenger_name": "JOHN DOE"},
		"validation_result": {"flight_number": "LA3456", "is_valid": true, "confidence": 100}
	}`), 0o600))

	in, err := readEvidence(good)
	require.NoError(t, err)
	require.NotNil(t, in.FlightData)
	assert.Equal(t, "LA3456", in.FlightData.FlightNumber)
	require.NotNil(t, in.Validation)
	assert.True(t, in.Validation.IsValid)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = readEvidence(bad)
	assert.Error(t, err)

	_, err = readEvidence(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, model.DocumentStatusView{ID: "doc-1", Status: model.StatusApproved}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Approved", got["status"])
}
