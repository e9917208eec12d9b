package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmilen/solsentry/internal/model"
)

func mk(rule string, sev model.Severity, file string, line int) model.Finding {
	return model.Finding{RuleID: rule, Severity: sev, File: file, Line: line, Message: rule}
}

func TestAggregateOrdersBySeverityThenLocation(t *testing.T) {
	t.Parallel()
	in := []model.Finding{
		mk("floating-pragma", model.SeverityLow, "b.sol", 1),
		mk("tx-origin-auth", model.SeverityHigh, "b.sol", 9),
		mk("delegatecall-injection", model.SeverityCritical, "a.sol", 30),
		mk("tx-origin-auth", model.SeverityHigh, "a.sol", 12),
	}
	out := Aggregate(in)
	require.Len(t, out, 4)
	assert.Equal(t, "delegatecall-injection", out[0].RuleID)
	assert.Equal(t, "a.sol", out[1].File)
	assert.Equal(t, "b.sol", out[2].File)
	assert.Equal(t, model.SeverityLow, out[3].Severity)
}

func TestAggregateDeduplicatesExactLocation(t *testing.T) {
	t.Parallel()
	f := mk("tx-origin-auth", model.SeverityHigh, "a.sol", 5)
	f.Contract = "A"
	f.Function = "f"
	out := Aggregate([]model.Finding{f, f, f})
	assert.Len(t, out, 1)
}

func TestAggregateKeepsDistinctRulesOnSameLine(t *testing.T) {
	t.Parallel()
	a := mk("tx-origin-auth", model.SeverityHigh, "a.sol", 5)
	b := mk("delegatecall-injection", model.SeverityCritical, "a.sol", 5)
	out := Aggregate([]model.Finding{a, b})
	require.Len(t, out, 2, "overlapping detectors are independent signals")
}

func TestAggregateDuplicateWinnerIsStable(t *testing.T) {
	t.Parallel()
	a := mk("analysis-incomplete", model.SeverityLow, "a.sol", 1)
	a.Message = "rule x skipped"
	b := a
	b.Message = "rule y skipped"

	first := Aggregate([]model.Finding{a, b})
	second := Aggregate([]model.Finding{b, a})
	require.Len(t, first, 1)
	assert.Equal(t, first, second, "input order must not change the surviving duplicate")
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	in := []model.Finding{
		mk("floating-pragma", model.SeverityLow, "b.sol", 1),
		mk("delegatecall-injection", model.SeverityCritical, "a.sol", 30),
	}
	_ = Aggregate(in)
	assert.Equal(t, "floating-pragma", in[0].RuleID)
}

func TestToJSONEmitsEmptyArrayForNoFindings(t *testing.T) {
	t.Parallel()
	res := &model.Result{Summary: model.Summary{FilesAnalyzed: 2}}
	data, err := ToJSON(res)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"findings": []`) ||
		strings.Contains(string(data), `"findings":[]`),
		"findings must serialize as [], not null: %s", data)

	var round map[string]any
	require.NoError(t, json.Unmarshal(data, &round))
	_, ok := round["summary"]
	assert.True(t, ok)
}
