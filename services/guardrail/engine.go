package guardrail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
	"github.com/upb/llm-cost-guard/services"
	"go.uber.org/zap"
)

// Engine applies the configured guardrail policies to one record and
// its detected anomalies, producing a single verdict.
//
// Categories are always evaluated in the fixed order hard_limit,
// budget, anomaly_rule; within a category, policies run in declaration
// order. A triggered block halts evaluation immediately. Throttle and
// downgrade also fail the verdict but do not halt, so a later block in
// the same pass still takes precedence as the triggered policy. Warn
// actions only accumulate into the explanation. Identical inputs
// always produce the identical verdict.
type Engine struct {
	ledger   repositories.Ledger
	policies []models.Policy
	logger   *zap.Logger
}

// NewEngine creates a new guardrail engine
func NewEngine(ledger repositories.Ledger, policies []models.Policy, logger *zap.Logger) *Engine {
	return &Engine{
		ledger:   ledger,
		policies: policies,
		logger:   logger,
	}
}

// Policies returns the engine's policy set in declaration order.
func (e *Engine) Policies() []models.Policy {
	out := make([]models.Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// Decide evaluates the record against every in-scope policy and
// returns the verdict. The record is never mutated.
func (e *Engine) Decide(ctx context.Context, record *models.UsageRecord, anomalies []models.Anomaly) (*models.Verdict, error) {
	verdict := &models.Verdict{
		Status:    models.VerdictPass,
		Anomalies: anomalies,
	}

	var reasons []string

halted:
	for _, kind := range models.PolicyKindOrder {
		for i := range e.policies {
			policy := &e.policies[i]
			if policy.Kind != kind || !policy.Scope.Matches(record.Feature, record.Model) {
				continue
			}

			triggered, reason, err := e.triggered(ctx, policy, record, anomalies)
			if err != nil {
				return nil, err
			}
			if !triggered {
				continue
			}

			reasons = append(reasons, fmt.Sprintf("[%s] %s", policy.Name, reason))

			switch {
			case policy.Action == models.ActionBlock:
				verdict.Status = models.VerdictFail
				verdict.TriggeredPolicy = policy
				break halted
			case policy.Action.Blocking():
				verdict.Status = models.VerdictFail
				if verdict.TriggeredPolicy == nil {
					verdict.TriggeredPolicy = policy
				}
			default: // warn
				if verdict.Status == models.VerdictPass {
					verdict.Status = models.VerdictWarn
				}
			}
		}
	}

	// Detected anomalies alone can never pass silently.
	if verdict.Status == models.VerdictPass && len(anomalies) > 0 {
		verdict.Status = models.VerdictWarn
	}
	for _, a := range anomalies {
		reasons = append(reasons, a.Explanation)
	}

	verdict.Explanation = strings.Join(reasons, "; ")
	if verdict.Explanation == "" {
		verdict.Explanation = "within baseline and policy limits"
	}

	e.logger.Debug("guardrail decision",
		zap.String("feature", record.Feature),
		zap.String("model", record.Model),
		zap.String("status", string(verdict.Status)),
		zap.Int("anomalies", len(anomalies)))

	return verdict, nil
}

func (e *Engine) triggered(ctx context.Context, policy *models.Policy, record *models.UsageRecord, anomalies []models.Anomaly) (bool, string, error) {
	switch policy.Kind {
	case models.PolicyKindHardLimit:
		return hardLimitTriggered(policy.HardLimit, record)
	case models.PolicyKindBudget:
		return e.budgetTriggered(ctx, policy, record)
	case models.PolicyKindAnomalyRule:
		return anomalyRuleTriggered(policy.AnomalyRule, anomalies)
	default:
		return false, "", services.ErrUnknownPolicyKind
	}
}

func hardLimitTriggered(params *models.HardLimitParams, record *models.UsageRecord) (bool, string, error) {
	if params == nil {
		return false, "", services.ErrInvalidPolicyConfig
	}

	var observed float64
	switch params.Metric {
	case models.MetricCost:
		observed = record.EstimatedCostUSD
	case models.MetricTokens:
		observed = float64(record.TotalTokens)
	default:
		return false, "", services.ErrInvalidPolicyConfig
	}

	if observed <= params.Max {
		return false, "", nil
	}
	return true, fmt.Sprintf("%s %.2f exceeds hard limit %.2f", params.Metric, observed, params.Max), nil
}

// budgetTriggered sums scope spend over the rolling window ending at
// the record's own timestamp, so replays and simulations are
// reproducible regardless of wall-clock time. The candidate record's
// cost always counts toward the window whether or not it has been
// persisted yet.
func (e *Engine) budgetTriggered(ctx context.Context, policy *models.Policy, record *models.UsageRecord) (bool, string, error) {
	params := policy.Budget
	if params == nil {
		return false, "", services.ErrInvalidPolicyConfig
	}

	since := record.Timestamp.Add(-time.Duration(params.WindowDays) * 24 * time.Hour)
	matches, err := e.ledger.Query(ctx, repositories.Filter{
		Feature: policy.Scope.Feature,
		Model:   policy.Scope.Model,
		Since:   since,
		Until:   record.Timestamp,
	})
	if err != nil {
		return false, "", services.WrapInternal("failed to compute window spend", err)
	}

	spend := record.EstimatedCostUSD
	for _, rec := range matches {
		if record.ID != 0 && rec.ID == record.ID {
			continue
		}
		spend += rec.EstimatedCostUSD
	}

	if spend <= params.LimitUSD {
		return false, "", nil
	}
	return true, fmt.Sprintf("window spend $%.2f exceeds budget $%.2f over %dd", spend, params.LimitUSD, params.WindowDays), nil
}

func anomalyRuleTriggered(params *models.AnomalyRuleParams, anomalies []models.Anomaly) (bool, string, error) {
	if params == nil {
		return false, "", services.ErrInvalidPolicyConfig
	}
	for _, a := range anomalies {
		if a.Kind == params.Anomaly {
			return true, fmt.Sprintf("anomaly %s detected", a.Kind), nil
		}
	}
	return false, "", nil
}
