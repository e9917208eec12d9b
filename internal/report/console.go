package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/0xmilen/solsentry/internal/model"
)

var (
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true)
	styleHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleMedium   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleLoc      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleHeader   = lipgloss.NewStyle().Bold(true).Underline(true)
)

func severityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityCritical:
		return styleCritical
	case model.SeverityHigh:
		return styleHigh
	case model.SeverityMedium:
		return styleMedium
	default:
		return styleLow
	}
}

// WriteConsole renders findings grouped by severity with the run summary.
func WriteConsole(w io.Writer, res *model.Result) {
	order := []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow}
	for _, sev := range order {
		var group []model.Finding
		for _, f := range res.Findings {
			if f.Severity == sev {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintln(w, styleHeader.Render(strings.ToUpper(string(sev))+fmt.Sprintf(" (%d)", len(group))))
		for _, f := range group {
			loc := fmt.Sprintf("%s:%d", f.File, f.Line)
			entity := f.Contract
			if f.Function != "" {
				entity += "." + f.Function
			}
			fmt.Fprintf(w, "  %s %s %s\n",
				severityStyle(sev).Render("["+f.RuleID+"]"),
				styleLoc.Render(loc),
				f.Message)
			if entity != "" {
				fmt.Fprintf(w, "    %s\n", styleDim.Render(entity))
			}
			if f.FixSuggestion != "" {
				fmt.Fprintf(w, "    %s\n", styleDim.Render("fix: "+f.FixSuggestion))
			}
		}
		fmt.Fprintln(w)
	}
	for _, n := range res.Notes {
		fmt.Fprintf(w, "%s %s %s\n", styleDim.Render(strings.ToUpper(n.Level)), n.File, n.Message)
	}
	s := res.Summary
	fmt.Fprintf(w, "%s files=%d skipped=%d contracts=%d rules=%d findings=%d elapsed=%s\n",
		styleHeader.Render("summary"),
		s.FilesAnalyzed, s.FilesSkipped, s.Contracts, s.RulesRun, len(res.Findings), s.Elapsed)
}
