package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/upb/llm-cost-guard/config"
	"go.uber.org/zap"
)

// Exit codes for CI gating. Unenforced runs always exit 0.
const (
	ExitCodePass = 0
	ExitCodeFail = 1
)

var (
	policyFile string
	noColor    bool

	headerColor = color.New(color.FgCyan, color.Bold)
	passColor   = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed, color.Bold)
	labelColor  = color.New(color.Bold)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "costguard",
	Short: "Cost governance for LLM usage",
	Long: `costguard keeps LLM spend observable and bounded: every call is
recorded in an append-only ledger, compared against statistical
baselines, and checked against declarative guardrail policies.

The simulate command runs the same evaluation pipeline the runtime
uses, read-only, so CI can gate cost regressions before they ship.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeFail)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy-file", "", "guardrail policy file (default from POLICY_FILE or guardrails.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output (for scripts/logging)")
}

// loadConfig builds the application config, letting the --policy-file
// flag override the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if policyFile != "" {
		cfg.PolicyFile = policyFile
	}
	return cfg, nil
}

// newLogger builds a zap logger matching the configured observability
// settings.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Observability.LogFormat == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Observability.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
