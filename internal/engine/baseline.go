package engine

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/0xmilen/solsentry/internal/model"
)

type Baseline struct {
	GeneratedAt  time.Time       `json:"generatedAt"`
	Fingerprints map[string]bool `json:"fingerprints"`
}

// LoadBaseline reads a baseline file; either a bare fingerprint array or the
// full struct form is accepted.
func LoadBaseline(path string) (Baseline, error) {
	var b Baseline
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	var fp []string
	if err := json.Unmarshal(data, &fp); err == nil {
		m := make(map[string]bool, len(fp))
		for _, f := range fp {
			m[f] = true
		}
		b.Fingerprints = m
		return b, nil
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, err
	}
	if b.Fingerprints == nil {
		b.Fingerprints = map[string]bool{}
	}
	return b, nil
}

func filterByBaseline(findings []model.Finding, b Baseline) []model.Finding {
	if len(b.Fingerprints) == 0 {
		return findings
	}
	var out []model.Finding
	for _, f := range findings {
		if f.Fingerprint != "" && b.Fingerprints[f.Fingerprint] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// WriteBaseline records finding fingerprints so CI runs can suppress known
// findings.
func WriteBaseline(path string, findings []model.Finding) error {
	if path == "" {
		return nil
	}
	seen := map[string]bool{}
	var arr []string
	for _, f := range findings {
		if f.Fingerprint != "" && !seen[f.Fingerprint] {
			seen[f.Fingerprint] = true
			arr = append(arr, f.Fingerprint)
		}
	}
	sort.Strings(arr)
	data, err := json.MarshalIndent(arr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
