package model

import (
	"strings"
	"time"
)

type Language string

const (
	LangSolidity Language = "solidity"
	LangMove     Language = "move"
	LangRust     Language = "rust"
	LangUnknown  Language = ""
)

// LanguageForPath guesses the contract language from the file extension.
func LanguageForPath(path string) Language {
	switch {
	case strings.HasSuffix(path, ".sol"):
		return LangSolidity
	case strings.HasSuffix(path, ".move"):
		return LangMove
	case strings.HasSuffix(path, ".rs"):
		return LangRust
	}
	return LangUnknown
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case string(SeverityCritical):
		return SeverityCritical
	case string(SeverityHigh):
		return SeverityHigh
	case string(SeverityMedium):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ValidSeverity reports whether s names one of the four levels.
func ValidSeverity(s string) bool {
	switch Severity(strings.ToLower(s)) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

func SeverityGTE(a, b Severity) bool {
	return SeverityRank(a) >= SeverityRank(b)
}

type Finding struct {
	RuleID        string   `json:"rule_id"`
	Severity      Severity `json:"severity"`
	File          string   `json:"file"`
	Line          int      `json:"line"`
	EndLine       int      `json:"end_line,omitempty"`
	Contract      string   `json:"contract,omitempty"`
	Function      string   `json:"function,omitempty"`
	Message       string   `json:"message"`
	FixSuggestion string   `json:"fix_suggestion,omitempty"`
	Snippet       string   `json:"snippet,omitempty"`
	References    []string `json:"references,omitempty"`
	Fingerprint   string   `json:"fingerprint,omitempty"`
}

// AnalyzeRequest describes one analysis run.
type AnalyzeRequest struct {
	Paths       []string
	Detectors   []string // empty = all registered rules
	MinSeverity Severity
	RuleFiles   []string
	Baseline    string
	ConfigPath  string
}

// Note is a non-finding diagnostic attached to the run (skipped files, warnings).
type Note struct {
	Level   string `json:"level"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// Summary is always emitted so an empty run is distinguishable from clean code.
type Summary struct {
	FilesAnalyzed int              `json:"files_analyzed"`
	FilesSkipped  int              `json:"files_skipped"`
	Contracts     int              `json:"contracts"`
	RulesRun      int              `json:"rules_run"`
	BySeverity    map[Severity]int `json:"by_severity"`
	Elapsed       time.Duration    `json:"elapsed_ns"`
}

type Result struct {
	Findings []Finding `json:"findings"`
	Notes    []Note    `json:"notes,omitempty"`
	Summary  Summary   `json:"summary"`
}
