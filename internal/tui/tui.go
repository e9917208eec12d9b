package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xmilen/solsentry/internal/model"
)

var (
	styleCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleSnippet  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleSeverity = lipgloss.NewStyle().Bold(true)
)

type modelT struct {
	findings []model.Finding
	cursor   int
}

func initialModel(findings []model.Finding) modelT { return modelT{findings: findings} }

func (m modelT) Init() tea.Cmd { return nil }

func (m modelT) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.findings)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m modelT) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Findings (%d)  q to quit\n\n", len(m.findings))
	for i, f := range m.findings {
		prefix := "  "
		if i == m.cursor {
			prefix = styleCursor.Render("> ")
		}
		fmt.Fprintf(&b, "%s%s %s %s:%d %s\n", prefix,
			styleSeverity.Render("["+string(f.Severity)+"]"), f.RuleID, f.File, f.Line, f.Message)
	}
	if len(m.findings) > 0 && m.cursor < len(m.findings) {
		f := m.findings[m.cursor]
		if f.Snippet != "" {
			b.WriteString("\n" + styleSnippet.Render(f.Snippet) + "\n")
		}
		if f.FixSuggestion != "" {
			b.WriteString(styleSnippet.Render("fix: "+f.FixSuggestion) + "\n")
		}
	}
	return b.String()
}

// Run launches the findings browser.
func Run(findings []model.Finding) error {
	p := tea.NewProgram(initialModel(findings))
	_, err := p.Run()
	return err
}
