package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/upb/llm-cost-guard/app"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/services/evaluation"
	"github.com/upb/llm-cost-guard/services/pricing"
)

var (
	simFeature          string
	simModel            string
	simPromptTokens     int
	simCompletionTokens int
	simCost             float64
	simRetries          int
	simEnforced         bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate a hypothetical call against ledger history",
	Long: `Builds a hypothetical usage record and runs it through the same
pipeline the runtime uses, without writing to the ledger. Prints the
baseline comparison, detected anomalies and the guardrail verdict.

Exits 1 on a fail verdict only when run with --enforced; unenforced
runs always exit 0 but still print the verdict.`,
	Example: `  # Simulate a prompt change that doubles output tokens
  costguard simulate --feature document_summary --model gpt-4 \
    --prompt-tokens 900 --completion-tokens 600

  # Gate a CI pipeline on the verdict
  costguard simulate --feature document_summary --model gpt-4 \
    --prompt-tokens 900 --completion-tokens 600 --enforced`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		deps, err := app.NewDependencies(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = deps.Close() }()

		cost := simCost
		if cost < 0 {
			cost, err = pricing.EstimateCost(simModel, simPromptTokens, simCompletionTokens)
			if err != nil {
				return err
			}
		}

		record := &models.UsageRecord{
			Feature:          simFeature,
			Model:            simModel,
			PromptTokens:     simPromptTokens,
			CompletionTokens: simCompletionTokens,
			TotalTokens:      simPromptTokens + simCompletionTokens,
			EstimatedCostUSD: cost,
			RetryCount:       simRetries,
			Succeeded:        true,
		}

		report, err := deps.Evaluation.Simulate(cmd.Context(), record)
		if err != nil {
			return err
		}

		printSimulationReport(report)

		if simEnforced && report.Verdict.Status == models.VerdictFail {
			os.Exit(ExitCodeFail)
		}
		return nil
	},
}

func printSimulationReport(report *evaluation.SimulationReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerColor.Fprintln(w, "--- Cost Simulation ---")
	fmt.Fprintf(w, "%s:\t%s / %s\n", labelColor.Sprint("Feature"), report.Feature, report.Model)
	fmt.Fprintf(w, "%s:\t%s (%d samples)\n", labelColor.Sprint("Baseline"), report.BaselineState, report.SampleCount)

	if report.BaselineState == models.BaselineWarm {
		fmt.Fprintf(w, "%s:\t$%.2f\n", labelColor.Sprint("Baseline cost/request"), report.BaselineCostPerRequest)
	} else {
		fmt.Fprintf(w, "%s:\tn/a (cold baseline)\n", labelColor.Sprint("Baseline cost/request"))
	}
	fmt.Fprintf(w, "%s:\t$%.2f\n", labelColor.Sprint("Simulated cost/request"), report.SimulatedCostPerRequest)

	if report.PercentChange != nil {
		fmt.Fprintf(w, "%s:\t%+.1f%%\n", labelColor.Sprint("Change"), *report.PercentChange)
	} else {
		fmt.Fprintf(w, "%s:\tn/a\n", labelColor.Sprint("Change"))
	}
	fmt.Fprintf(w, "%s:\t$%.2f\n", labelColor.Sprint("Est. monthly impact"), report.EstimatedMonthlyImpactUSD)

	if len(report.Verdict.Anomalies) > 0 {
		headerColor.Fprintln(w, "\nAnomalies")
		for _, a := range report.Verdict.Anomalies {
			fmt.Fprintf(w, "  %s:\t%s\n", warnColor.Sprint(string(a.Kind)), a.Explanation)
		}
	}

	headerColor.Fprintln(w, "\nVerdict")
	switch report.Verdict.Status {
	case models.VerdictPass:
		fmt.Fprintf(w, "  %s\t%s\n", passColor.Sprint("PASS"), report.Verdict.Explanation)
	case models.VerdictWarn:
		fmt.Fprintf(w, "  %s\t%s\n", warnColor.Sprint("WARN"), report.Verdict.Explanation)
	case models.VerdictFail:
		fmt.Fprintf(w, "  %s\t%s\n", failColor.Sprint("FAIL"), report.Verdict.Explanation)
		if report.Verdict.TriggeredPolicy != nil {
			fmt.Fprintf(w, "  %s:\t%s\n", labelColor.Sprint("Triggered policy"), report.Verdict.TriggeredPolicy.Name)
		}
	}
}

func init() {
	simulateCmd.Flags().StringVar(&simFeature, "feature", "", "feature key to simulate (required)")
	simulateCmd.Flags().StringVar(&simModel, "model", "", "model identifier to simulate (required)")
	simulateCmd.Flags().IntVar(&simPromptTokens, "prompt-tokens", 0, "projected prompt tokens")
	simulateCmd.Flags().IntVar(&simCompletionTokens, "completion-tokens", 0, "projected completion tokens")
	simulateCmd.Flags().Float64Var(&simCost, "cost", -1, "projected cost in USD (derived from the rate card when omitted)")
	simulateCmd.Flags().IntVar(&simRetries, "retries", 0, "projected retry count")
	simulateCmd.Flags().BoolVar(&simEnforced, "enforced", false, "exit 1 on a fail verdict")
	_ = simulateCmd.MarkFlagRequired("feature")
	_ = simulateCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(simulateCmd)
}
