package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0xmilen/solsentry/internal/facts"
	"github.com/0xmilen/solsentry/internal/model"
)

type yamlGroup struct {
	Any       []string `yaml:"any"`
	Scope     []string `yaml:"scope"`
	Substring bool     `yaml:"substring"`
}

type yamlForbid struct {
	AllPresent []yamlGroup `yaml:"all_present"`
	AnyPresent []yamlGroup `yaml:"any_present"`
}

type yamlCount struct {
	Any       []string `yaml:"any"`
	Scope     []string `yaml:"scope"`
	Substring bool     `yaml:"substring"`
	Op        string   `yaml:"op"`
	N         int      `yaml:"n"`
}

type yamlRule struct {
	ID               string      `yaml:"id"`
	Title            string      `yaml:"title"`
	Severity         string      `yaml:"severity"`
	Category         string      `yaml:"category"`
	Message          string      `yaml:"message"`
	Fix              string      `yaml:"fix"`
	References       []string    `yaml:"references"`
	Require          []yamlGroup `yaml:"require"`
	Forbid           []yamlForbid `yaml:"forbid"`
	Count            []yamlCount `yaml:"count"`
	Constructs       []string    `yaml:"constructs"`
	ForbidConstructs []string    `yaml:"forbid_constructs"`
	NeedsFullBody    bool        `yaml:"needs_full_body"`
}

type yamlFile struct {
	Rules []yamlRule `yaml:"rules"`
}

// LoadFile parses a YAML rule file into definitions. Shape errors here are
// configuration errors; callers fail the run before analysis starts.
func LoadFile(path string) ([]Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	var defs []Definition
	for _, yr := range f.Rules {
		d, err := yr.toDefinition()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func (yr yamlRule) toDefinition() (Definition, error) {
	d := Definition{
		ID:            yr.ID,
		Title:         yr.Title,
		Severity:      model.ParseSeverity(yr.Severity),
		Category:      yr.Category,
		Message:       yr.Message,
		FixSuggestion: yr.Fix,
		References:    yr.References,
		NeedsFullBody: yr.NeedsFullBody,
	}
	if yr.Severity != "" && !model.ValidSeverity(yr.Severity) {
		return d, fmt.Errorf("rule %s: invalid severity %q", yr.ID, yr.Severity)
	}
	for _, yg := range yr.Require {
		g, err := yg.toGroup(yr.ID)
		if err != nil {
			return d, err
		}
		d.Require = append(d.Require, g)
	}
	for _, yf := range yr.Forbid {
		var f Forbid
		for _, yg := range yf.AllPresent {
			g, err := yg.toGroup(yr.ID)
			if err != nil {
				return d, err
			}
			f.AllPresent = append(f.AllPresent, g)
		}
		for _, yg := range yf.AnyPresent {
			g, err := yg.toGroup(yr.ID)
			if err != nil {
				return d, err
			}
			f.AnyPresent = append(f.AnyPresent, g)
		}
		d.Forbid = append(d.Forbid, f)
	}
	for _, yc := range yr.Count {
		g, err := yamlGroup{Any: yc.Any, Scope: yc.Scope, Substring: yc.Substring}.toGroup(yr.ID)
		if err != nil {
			return d, err
		}
		d.Counts = append(d.Counts, Count{Group: g, Op: CountOp(yc.Op), N: yc.N})
	}
	for _, c := range yr.Constructs {
		d.Constructs = append(d.Constructs, facts.Construct(c))
	}
	for _, c := range yr.ForbidConstructs {
		d.ForbidConstructs = append(d.ForbidConstructs, facts.Construct(c))
	}
	return d, nil
}

func (yg yamlGroup) toGroup(ruleID string) (Group, error) {
	scope, ok := facts.ParseScope(yg.Scope)
	if !ok {
		return Group{}, fmt.Errorf("rule %s: invalid scope %v", ruleID, yg.Scope)
	}
	return Group{Any: yg.Any, Scope: scope, Substring: yg.Substring}, nil
}

// Load builds the full rule set: builtins plus any YAML overlays.
func Load(ruleFiles []string) (*Registry, error) {
	defs := Builtin()
	for _, f := range ruleFiles {
		extra, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		defs = append(defs, extra...)
	}
	return NewRegistry(defs)
}
