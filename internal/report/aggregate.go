package report

import (
	"sort"

	"github.com/0xmilen/solsentry/internal/model"
)

type dedupeKey struct {
	rule     string
	file     string
	line     int
	contract string
	function string
}

// Aggregate deduplicates and orders findings. Two findings are duplicates
// only when they share (rule, file, line, contract, function); different
// detectors on the same line are independent by design and both survive.
// The sort is a total order, so the output is byte-identical across runs
// regardless of evaluation order.
func Aggregate(findings []model.Finding) []model.Finding {
	sorted := make([]model.Finding, len(findings))
	copy(sorted, findings)
	// sort before dedupe so the surviving duplicate does not depend on
	// worker merge order
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := model.SeverityRank(a.Severity), model.SeverityRank(b.Severity); ra != rb {
			return ra > rb
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.Contract != b.Contract {
			return a.Contract < b.Contract
		}
		if a.Function != b.Function {
			return a.Function < b.Function
		}
		return a.Message < b.Message
	})
	seen := map[dedupeKey]bool{}
	out := make([]model.Finding, 0, len(sorted))
	for _, f := range sorted {
		k := dedupeKey{rule: f.RuleID, file: f.File, line: f.Line, contract: f.Contract, function: f.Function}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}
