package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type IgnoreRule struct {
	Rule   string `json:"rule"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type Config struct {
	SeverityThreshold string       `json:"severityThreshold"`
	MaxFileSizeBytes  int64        `json:"maxFileSizeBytes"`
	RuleFiles         []string     `json:"ruleFiles"`
	Ignore            []IgnoreRule `json:"ignore"`
}

func Default() Config {
	return Config{
		SeverityThreshold: "low",
		MaxFileSizeBytes:  4 << 20,
	}
}

// Load searches upwards from startDir for .solsentry.json. A missing file
// yields the defaults; a malformed file is a configuration error.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, ".solsentry.json")
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, fmt.Errorf("parse %s: %w", candidate, err)
			}
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// LoadFile reads an explicit config path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
