package engine

import (
	"github.com/0xmilen/solsentry/internal/model"
	"github.com/0xmilen/solsentry/internal/rules"
)

// filterBySeverity removes findings below the severity threshold.
func filterBySeverity(findings []model.Finding, threshold model.Severity) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if model.SeverityGTE(f.Severity, threshold) {
			out = append(out, f)
		}
	}
	return out
}

// filterDetectors keeps findings from the requested detectors. Diagnostic
// findings always pass so a filtered run stays honest about skips.
func filterDetectors(findings []model.Finding, ids []string) []model.Finding {
	if len(ids) == 0 {
		return findings
	}
	allowed := map[string]struct{}{
		rules.RuleParseError:         {},
		rules.RuleAnalysisIncomplete: {},
	}
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	var out []model.Finding
	for _, f := range findings {
		if _, ok := allowed[f.RuleID]; ok {
			out = append(out, f)
		}
	}
	return out
}
