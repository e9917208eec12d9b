package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xmilen/solsentry/internal/config"
	"github.com/0xmilen/solsentry/internal/engine"
	"github.com/0xmilen/solsentry/internal/model"
	"github.com/0xmilen/solsentry/internal/report"
	"github.com/0xmilen/solsentry/internal/rules"
	"github.com/0xmilen/solsentry/internal/tui"
)

func AddCommands(root *cobra.Command) {
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newInitCmd())
}

func newAnalyzeCmd() *cobra.Command {
	var (
		detectors     []string
		format        string
		minSeverity   string
		outputFile    string
		ruleFiles     []string
		configPath    string
		baseline      string
		writeBaseline string
		failOn        string
		useTUI        bool
		verbose       bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Analyze contract sources for vulnerability patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			var cfg config.Config
			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, _, err = config.Load(args[0])
			}
			if err != nil {
				return err
			}
			if minSeverity != "" && !model.ValidSeverity(minSeverity) {
				return fmt.Errorf("invalid --min-severity %q", minSeverity)
			}
			if failOn != "" && !model.ValidSeverity(failOn) {
				return fmt.Errorf("invalid --fail-on %q", failOn)
			}

			// bad rule sets are fatal before any analysis runs
			reg, err := rules.Load(append(cfg.RuleFiles, ruleFiles...))
			if err != nil {
				return err
			}

			req := model.AnalyzeRequest{
				Paths:     args,
				Detectors: detectors,
				Baseline:  baseline,
			}
			if minSeverity != "" {
				req.MinSeverity = model.ParseSeverity(minSeverity)
			}
			eng := engine.New(reg, cfg, log)
			res, err := eng.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if writeBaseline != "" {
				if err := engine.WriteBaseline(writeBaseline, res.Findings); err != nil {
					return err
				}
			}
			if useTUI {
				return tui.Run(res.Findings)
			}
			switch format {
			case "json":
				data, err := report.ToJSON(res)
				if err != nil {
					return err
				}
				if outputFile != "" {
					return os.WriteFile(outputFile, data, 0o644)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case "console", "":
				if outputFile != "" {
					f, err := os.Create(outputFile)
					if err != nil {
						return err
					}
					defer f.Close()
					report.WriteConsole(f, res)
				} else {
					report.WriteConsole(cmd.OutOrStdout(), res)
				}
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			if failOn != "" {
				threshold := model.ParseSeverity(failOn)
				for _, f := range res.Findings {
					if model.SeverityGTE(f.Severity, threshold) {
						return fmt.Errorf("fail-on threshold met: %s finding from %s", f.Severity, f.RuleID)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&detectors, "detector", nil, "Run only the named detectors (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "console", "Output format: console|json")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "Drop findings below this severity (low|medium|high|critical)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file")
	cmd.Flags().StringSliceVar(&ruleFiles, "rules", nil, "Extra YAML rule files (repeatable)")
	cmd.Flags().StringVar(&configPath, "config", "", "Explicit config file path")
	cmd.Flags().StringVar(&baseline, "baseline", "", "Suppress findings fingerprinted in this baseline file")
	cmd.Flags().StringVar(&writeBaseline, "write-baseline", "", "Write a baseline file with finding fingerprints")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero if a finding of this severity or higher exists")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Render interactive TUI output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	return cmd
}
