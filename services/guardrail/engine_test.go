package guardrail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories/memory"
	"go.uber.org/zap"
)

func newEngine(t *testing.T, policies []models.Policy) (*Engine, *memory.Ledger) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store := memory.NewLedger()
	return NewEngine(store, policies, logger), store
}

func record(cost float64, tokens int) *models.UsageRecord {
	return &models.UsageRecord{
		Timestamp:        time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
		Feature:          "document_summary",
		Model:            "gpt-4",
		PromptTokens:     tokens,
		TotalTokens:      tokens,
		EstimatedCostUSD: cost,
		Succeeded:        true,
	}
}

func hardLimitPolicy(name string, metric models.HardLimitMetric, max float64, action models.PolicyAction) models.Policy {
	return models.Policy{
		Name:      name,
		Kind:      models.PolicyKindHardLimit,
		Action:    action,
		HardLimit: &models.HardLimitParams{Metric: metric, Max: max},
	}
}

func TestDecide_PassWithNoPolicies(t *testing.T) {
	engine, _ := newEngine(t, nil)

	v, err := engine.Decide(context.Background(), record(5.00, 1000), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictPass, v.Status)
	assert.Nil(t, v.TriggeredPolicy)
	assert.NotEmpty(t, v.Explanation)
}

func TestDecide_HardLimitBlock(t *testing.T) {
	engine, _ := newEngine(t, []models.Policy{
		hardLimitPolicy("cost-ceiling", models.MetricCost, 10.00, models.ActionBlock),
	})

	v, err := engine.Decide(context.Background(), record(10.01, 1000), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictFail, v.Status)
	require.NotNil(t, v.TriggeredPolicy)
	assert.Equal(t, "cost-ceiling", v.TriggeredPolicy.Name)
	assert.Contains(t, v.Explanation, "cost-ceiling")
}

func TestDecide_HardLimitAtMaxPasses(t *testing.T) {
	engine, _ := newEngine(t, []models.Policy{
		hardLimitPolicy("cost-ceiling", models.MetricCost, 10.00, models.ActionBlock),
	})

	v, err := engine.Decide(context.Background(), record(10.00, 1000), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictPass, v.Status)
}

func TestDecide_TokenHardLimit(t *testing.T) {
	engine, _ := newEngine(t, []models.Policy{
		hardLimitPolicy("token-ceiling", models.MetricTokens, 2000, models.ActionBlock),
	})

	v, err := engine.Decide(context.Background(), record(1.00, 2001), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictFail, v.Status)
}

func TestDecide_ScopeFiltersPolicies(t *testing.T) {
	p := hardLimitPolicy("gpt4-only", models.MetricCost, 1.00, models.ActionBlock)
	p.Scope = models.PolicyScope{Model: "gpt-4"}
	engine, _ := newEngine(t, []models.Policy{p})

	rec := record(5.00, 100)
	rec.Model = "gpt-3.5-turbo"

	v, err := engine.Decide(context.Background(), rec, nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictPass, v.Status, "out-of-scope policy must not apply")
}

func TestDecide_BudgetIncludesCandidateRecord(t *testing.T) {
	engine, store := newEngine(t, []models.Policy{{
		Name:   "weekly-budget",
		Kind:   models.PolicyKindBudget,
		Action: models.ActionBlock,
		Budget: &models.BudgetParams{LimitUSD: 100.00, WindowDays: 7},
	}})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := record(19.00, 100)
		rec.Timestamp = rec.Timestamp.Add(-time.Duration(i) * time.Hour)
		_, err := store.Append(ctx, rec)
		require.NoError(t, err)
	}

	// 95.00 already spent; a 6.00 candidate pushes the window past 100.
	v, err := engine.Decide(ctx, record(6.00, 100), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictFail, v.Status)
	assert.Contains(t, v.Explanation, "weekly-budget")
}

func TestDecide_BudgetIgnoresSpendOutsideWindow(t *testing.T) {
	engine, store := newEngine(t, []models.Policy{{
		Name:   "weekly-budget",
		Kind:   models.PolicyKindBudget,
		Action: models.ActionBlock,
		Budget: &models.BudgetParams{LimitUSD: 100.00, WindowDays: 7},
	}})

	ctx := context.Background()
	old := record(95.00, 100)
	old.Timestamp = old.Timestamp.Add(-8 * 24 * time.Hour)
	_, err := store.Append(ctx, old)
	require.NoError(t, err)

	v, err := engine.Decide(ctx, record(6.00, 100), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictPass, v.Status)
}

func TestDecide_BudgetDoesNotDoubleCountPersistedCandidate(t *testing.T) {
	engine, store := newEngine(t, []models.Policy{{
		Name:   "weekly-budget",
		Kind:   models.PolicyKindBudget,
		Action: models.ActionBlock,
		Budget: &models.BudgetParams{LimitUSD: 100.00, WindowDays: 7},
	}})

	ctx := context.Background()
	rec := record(60.00, 100)
	id, err := store.Append(ctx, rec)
	require.NoError(t, err)
	rec.ID = id

	// 60.00 counted once stays under the limit; double-counted it would fail.
	v, err := engine.Decide(ctx, rec, nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictPass, v.Status)
}

func TestDecide_AnomalyRuleBlocks(t *testing.T) {
	engine, _ := newEngine(t, []models.Policy{{
		Name:        "no-retry-storms",
		Kind:        models.PolicyKindAnomalyRule,
		Action:      models.ActionBlock,
		AnomalyRule: &models.AnomalyRuleParams{Anomaly: models.AnomalyRetryAmplification},
	}})

	anomalies := []models.Anomaly{{
		Kind:        models.AnomalyRetryAmplification,
		Explanation: "5 retries at $2.00 per attempt",
	}}

	v, err := engine.Decide(context.Background(), record(2.00, 100), anomalies)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictFail, v.Status)
	require.NotNil(t, v.TriggeredPolicy)
	assert.Equal(t, "no-retry-storms", v.TriggeredPolicy.Name)
}

func TestDecide_AnomaliesWithoutMatchingPolicyWarn(t *testing.T) {
	engine, _ := newEngine(t, nil)

	anomalies := []models.Anomaly{{
		Kind:        models.AnomalyCostSpike,
		Explanation: "cost $14.01 exceeds P90 $7.00 x 2.0 = $14.00",
	}}

	v, err := engine.Decide(context.Background(), record(14.01, 100), anomalies)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictWarn, v.Status)
	assert.Nil(t, v.TriggeredPolicy)
	assert.Contains(t, v.Explanation, "P90")
}

func TestDecide_WarnActionDoesNotFail(t *testing.T) {
	engine, _ := newEngine(t, []models.Policy{
		hardLimitPolicy("soft-ceiling", models.MetricCost, 5.00, models.ActionWarn),
	})

	v, err := engine.Decide(context.Background(), record(6.00, 100), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictWarn, v.Status)
	assert.Nil(t, v.TriggeredPolicy)
	assert.Contains(t, v.Explanation, "soft-ceiling")
}

func TestDecide_ThrottleFailsButLaterBlockTakesPrecedence(t *testing.T) {
	throttle := hardLimitPolicy("throttle-first", models.MetricCost, 1.00, models.ActionThrottle)
	block := hardLimitPolicy("block-second", models.MetricCost, 2.00, models.ActionBlock)
	engine, _ := newEngine(t, []models.Policy{throttle, block})

	v, err := engine.Decide(context.Background(), record(3.00, 100), nil)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictFail, v.Status)
	require.NotNil(t, v.TriggeredPolicy)
	assert.Equal(t, "block-second", v.TriggeredPolicy.Name)
}

func TestDecide_CategoryOrderBeatsDeclarationOrder(t *testing.T) {
	// The anomaly_rule policy is declared first, but the hard_limit
	// category always evaluates before anomaly_rule.
	anomalyRule := models.Policy{
		Name:        "anomaly-block",
		Kind:        models.PolicyKindAnomalyRule,
		Action:      models.ActionBlock,
		AnomalyRule: &models.AnomalyRuleParams{Anomaly: models.AnomalyCostSpike},
	}
	hardLimit := hardLimitPolicy("hard-block", models.MetricCost, 1.00, models.ActionBlock)
	engine, _ := newEngine(t, []models.Policy{anomalyRule, hardLimit})

	anomalies := []models.Anomaly{{Kind: models.AnomalyCostSpike, Explanation: "spike"}}

	v, err := engine.Decide(context.Background(), record(5.00, 100), anomalies)

	require.NoError(t, err)
	assert.Equal(t, models.VerdictFail, v.Status)
	require.NotNil(t, v.TriggeredPolicy)
	assert.Equal(t, "hard-block", v.TriggeredPolicy.Name)
}

func TestDecide_BlockHaltsFurtherEvaluation(t *testing.T) {
	first := hardLimitPolicy("first-block", models.MetricCost, 1.00, models.ActionBlock)
	second := hardLimitPolicy("second-block", models.MetricCost, 2.00, models.ActionBlock)
	engine, _ := newEngine(t, []models.Policy{first, second})

	v, err := engine.Decide(context.Background(), record(5.00, 100), nil)

	require.NoError(t, err)
	require.NotNil(t, v.TriggeredPolicy)
	assert.Equal(t, "first-block", v.TriggeredPolicy.Name)
	assert.NotContains(t, v.Explanation, "second-block", "evaluation halts at the first block")
}

func TestDecide_Deterministic(t *testing.T) {
	engine, _ := newEngine(t, []models.Policy{
		hardLimitPolicy("ceiling", models.MetricCost, 1.00, models.ActionWarn),
	})

	rec := record(2.00, 100)
	first, err := engine.Decide(context.Background(), rec, nil)
	require.NoError(t, err)
	second, err := engine.Decide(context.Background(), rec, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
