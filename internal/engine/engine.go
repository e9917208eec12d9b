package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmilen/solsentry/internal/config"
	"github.com/0xmilen/solsentry/internal/facts"
	"github.com/0xmilen/solsentry/internal/lang"
	"github.com/0xmilen/solsentry/internal/model"
	"github.com/0xmilen/solsentry/internal/report"
	"github.com/0xmilen/solsentry/internal/rules"
	"github.com/0xmilen/solsentry/internal/source"
)

type Engine struct {
	registry *rules.Registry
	cfg      config.Config
	log      *slog.Logger
}

func New(reg *rules.Registry, cfg config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{registry: reg, cfg: cfg, log: log}
}

// Run performs one analysis: discover -> load -> parse -> extract facts ->
// evaluate (contract x rule) -> aggregate. Configuration problems fail fast
// before any file is read; per-file trouble degrades to notes and findings.
func (e *Engine) Run(ctx context.Context, req model.AnalyzeRequest) (*model.Result, error) {
	start := time.Now()

	defs, err := e.selectRules(req.Detectors)
	if err != nil {
		return nil, err
	}

	files, notes, err := source.Discover(req.Paths)
	if err != nil {
		return nil, err
	}
	set := source.LoadAll(ctx, files, e.cfg.MaxFileSizeBytes)
	notes = append(notes, set.Notes...)

	var all []model.Finding
	var tables []*facts.Table
	for _, u := range set.Units {
		tree := lang.Parse(u)
		for _, pe := range tree.Errors {
			all = append(all, parseErrorFinding(u, pe))
		}
		tables = append(tables, facts.Build(tree)...)
	}

	all = append(all, e.evaluateAll(ctx, defs, tables)...)

	all = filterDetectors(all, req.Detectors)
	minSev := req.MinSeverity
	if minSev == "" {
		minSev = model.ParseSeverity(e.cfg.SeverityThreshold)
	}
	all = filterBySeverity(all, minSev)
	all = applyIgnores(all, e.cfg)
	if req.Baseline != "" {
		b, err := LoadBaseline(req.Baseline)
		if err != nil {
			return nil, fmt.Errorf("load baseline: %w", err)
		}
		all = filterByBaseline(all, b)
	}

	final := report.Aggregate(all)
	bySev := map[model.Severity]int{}
	for _, f := range final {
		bySev[f.Severity]++
	}
	return &model.Result{
		Findings: final,
		Notes:    notes,
		Summary: model.Summary{
			FilesAnalyzed: len(set.Units),
			FilesSkipped:  set.Skipped,
			Contracts:     len(tables),
			RulesRun:      len(defs),
			BySeverity:    bySev,
			Elapsed:       time.Since(start),
		},
	}, nil
}

// selectRules resolves --detector ids against the registry. Reserved
// diagnostic ids are valid selectors but never evaluated as predicates.
func (e *Engine) selectRules(ids []string) ([]rules.Definition, error) {
	var registryIDs []string
	for _, id := range ids {
		if id == rules.RuleParseError || id == rules.RuleAnalysisIncomplete {
			continue
		}
		registryIDs = append(registryIDs, id)
	}
	if len(ids) > 0 && len(registryIDs) == 0 {
		return nil, nil // only diagnostic detectors requested
	}
	return e.registry.Select(registryIDs)
}

// evaluateAll fans (contract x rule) pairs across a worker pool. Workers keep
// private buffers merged at the end; the registry is read-only, so there is
// no locking on the hot path.
func (e *Engine) evaluateAll(ctx context.Context, defs []rules.Definition, tables []*facts.Table) []model.Finding {
	type job struct {
		def   rules.Definition
		table *facts.Table
	}
	jobs := make([]job, 0, len(defs)*len(tables))
	for _, t := range tables {
		for _, d := range defs {
			jobs = append(jobs, job{def: d, table: t})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	buffers := make([][]model.Finding, workers)
	var next int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				i := int(atomic.AddInt64(&next, 1)) - 1
				if i >= len(jobs) {
					return
				}
				j := jobs[i]
				buffers[w] = append(buffers[w], e.evalSafe(j.def, j.table)...)
			}
		}(w)
	}
	wg.Wait()

	var out []model.Finding
	for _, buf := range buffers {
		out = append(out, buf...)
	}
	return out
}

// evalSafe isolates a panicking (rule, contract) pair; one bad combination
// must not suppress every other finding.
func (e *Engine) evalSafe(def rules.Definition, t *facts.Table) (fs []model.Finding) {
	var contract, file string
	if t != nil {
		contract, file = t.Contract, t.File
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("rule evaluation panicked",
				"rule", def.ID, "contract", contract, "file", file, "panic", r)
			fs = nil
		}
	}()
	return Evaluate(def, t)
}

func parseErrorFinding(u *source.Unit, pe lang.ParseError) model.Finding {
	line := u.LineOf(pe.Offset)
	return model.Finding{
		RuleID:   rules.RuleParseError,
		Severity: model.SeverityMedium,
		File:     u.Path,
		Line:     line,
		Message:  "source could not be fully parsed: " + pe.Message,
	}
}
