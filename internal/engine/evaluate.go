package engine

import (
	"fmt"

	"github.com/0xmilen/solsentry/internal/facts"
	"github.com/0xmilen/solsentry/internal/model"
	"github.com/0xmilen/solsentry/internal/rules"
	"github.com/0xmilen/solsentry/internal/util"
)

// Evaluate applies one rule to one fact table. It is a pure function of its
// inputs; no rule depends on the evaluation of any other.
//
// A rule fires when every required keyword group matches (OR within a group,
// AND across groups), no forbid predicate blocks, every count constraint
// holds, and every required construct was observed. Construct rules emit one
// finding per distinct site of the first required construct; keyword rules
// emit a single finding at the earliest matching site.
func Evaluate(rule rules.Definition, t *facts.Table) []model.Finding {
	if rule.NeedsFullBody && t.Partial {
		return []model.Finding{diagnostic(t)}
	}
	for _, g := range rule.Require {
		if !g.Match(t) {
			return nil
		}
	}
	for _, f := range rule.Forbid {
		if f.Blocks(t) {
			return nil
		}
	}
	for _, c := range rule.Counts {
		if !c.Holds(t) {
			return nil
		}
	}
	for _, c := range rule.Constructs {
		if !t.HasConstruct(c) {
			return nil
		}
	}
	for _, c := range rule.ForbidConstructs {
		if t.HasConstruct(c) {
			return nil
		}
	}

	if len(rule.Constructs) > 0 {
		var out []model.Finding
		seen := map[int]bool{}
		for _, site := range t.Constructs[rule.Constructs[0]] {
			if seen[site.Line] {
				continue
			}
			seen[site.Line] = true
			out = append(out, finding(rule, t, site))
		}
		return out
	}
	site := locate(rule, t)
	return []model.Finding{finding(rule, t, site)}
}

// locate picks the earliest site of the rule's first matching signal, falling
// back to the contract declaration line so every finding dereferences.
func locate(rule rules.Definition, t *facts.Table) facts.Site {
	for _, g := range rule.Require {
		if s, ok := g.FirstSite(t); ok {
			return s
		}
	}
	for _, c := range rule.Counts {
		if s, ok := c.Group.FirstSite(t); ok {
			return s
		}
	}
	return facts.Site{Line: t.Line, Function: -1}
}

func finding(rule rules.Definition, t *facts.Table, site facts.Site) model.Finding {
	fn := ""
	if site.Function >= 0 && site.Function < len(t.Functions) {
		fn = t.Functions[site.Function].Name
	}
	f := model.Finding{
		RuleID:        rule.ID,
		Severity:      rule.Severity,
		File:          t.File,
		Line:          site.Line,
		EndLine:       site.Line,
		Contract:      t.Contract,
		Function:      fn,
		Message:       rule.Message,
		FixSuggestion: rule.FixSuggestion,
		References:    rule.References,
		Fingerprint:   util.Fingerprint(rule.ID, t.File, site.Line, t.Contract, fn),
	}
	if t.Unit != nil {
		f.Snippet = util.ExtractSnippet(t.Unit.Content, site.Line, site.Line, 6)
	}
	return f
}

// diagnostic reports a conservative skip: a full-body rule met a partially
// parsed contract and must not false-negate silently. The message is
// rule-agnostic on purpose; every skipped rule produces the same finding and
// aggregation collapses them to one per contract.
func diagnostic(t *facts.Table) model.Finding {
	return model.Finding{
		RuleID:   rules.RuleAnalysisIncomplete,
		Severity: model.SeverityLow,
		File:     t.File,
		Line:     t.Line,
		Contract: t.Contract,
		Message: fmt.Sprintf("contract %s parsed partially; rules requiring full function bodies were skipped",
			t.Contract),
		Fingerprint: util.Fingerprint(rules.RuleAnalysisIncomplete, t.File, t.Line, t.Contract, ""),
	}
}
