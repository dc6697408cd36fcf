package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-cost-guard/config"
	"github.com/upb/llm-cost-guard/models"
	"go.uber.org/zap"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return NewDetector(config.ThresholdConfig{
		SpikeFactor:    2.0,
		TokenFactor:    3.0,
		RetryThreshold: 3,
	}, logger)
}

func warmBaseline() *models.Baseline {
	return &models.Baseline{
		Feature:     "document_summary",
		Model:       "gpt-4",
		SampleCount: 50,
		State:       models.BaselineWarm,
		Stats: &models.BaselineStats{
			MedianCostUSD: 6.15,
			P90CostUSD:    7.00,
			MedianTokens:  1000,
		},
	}
}

func coldBaseline() *models.Baseline {
	return &models.Baseline{
		Feature:     "document_summary",
		Model:       "gpt-4",
		SampleCount: 0,
		State:       models.BaselineCold,
	}
}

func normalRecord() *models.UsageRecord {
	return &models.UsageRecord{
		Feature:          "document_summary",
		Model:            "gpt-4",
		PromptTokens:     800,
		CompletionTokens: 200,
		TotalTokens:      1000,
		EstimatedCostUSD: 6.00,
		Succeeded:        true,
	}
}

func TestEvaluate_NoAnomalies(t *testing.T) {
	d := newDetector(t)
	got := d.Evaluate(normalRecord(), warmBaseline())
	assert.Empty(t, got)
}

func TestEvaluate_CostSpike(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.EstimatedCostUSD = 14.01 // above 7.00 * 2.0

	got := d.Evaluate(rec, warmBaseline())

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, models.AnomalyCostSpike, a.Kind)
	assert.Equal(t, 14.01, a.ObservedValue)
	assert.Equal(t, 7.00, a.BaselineValue)
	assert.Equal(t, 14.00, a.Threshold)
	assert.Contains(t, a.Explanation, "$14.01")
	assert.Contains(t, a.Explanation, "$7.00")
}

func TestEvaluate_CostAtThresholdDoesNotFire(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.EstimatedCostUSD = 14.00 // exactly P90 * factor

	assert.Empty(t, d.Evaluate(rec, warmBaseline()))
}

func TestEvaluate_TokenExplosion(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.PromptTokens = 3000
	rec.CompletionTokens = 1
	rec.TotalTokens = 3001 // above 1000 * 3.0

	got := d.Evaluate(rec, warmBaseline())

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, models.AnomalyTokenExplosion, a.Kind)
	assert.Equal(t, 3001.0, a.ObservedValue)
	assert.Equal(t, 1000.0, a.BaselineValue)
	assert.Equal(t, 3000.0, a.Threshold)
}

func TestEvaluate_RetryAmplification(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.RetryCount = 5
	rec.EstimatedCostUSD = 2.00

	got := d.Evaluate(rec, warmBaseline())

	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, models.AnomalyRetryAmplification, a.Kind)
	assert.Equal(t, 5.0, a.ObservedValue)
	assert.Equal(t, 3.0, a.Threshold)
	assert.Contains(t, a.Explanation, "$10.00", "explanation reports cost impact cost * retries")
}

func TestEvaluate_ColdBaselineSuppressesRelativeRulesOnly(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.EstimatedCostUSD = 10000
	rec.PromptTokens = 999000
	rec.CompletionTokens = 1000
	rec.TotalTokens = 1000000
	rec.RetryCount = 5

	got := d.Evaluate(rec, coldBaseline())

	require.Len(t, got, 1, "only the absolute rule may fire on a cold baseline")
	assert.Equal(t, models.AnomalyRetryAmplification, got[0].Kind)
}

func TestEvaluate_RetryBelowThresholdDoesNotFire(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.RetryCount = 2

	assert.Empty(t, d.Evaluate(rec, coldBaseline()))
}

func TestEvaluate_FixedOrdering(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.EstimatedCostUSD = 20.00
	rec.PromptTokens = 4000
	rec.CompletionTokens = 0
	rec.TotalTokens = 4000
	rec.RetryCount = 4

	got := d.Evaluate(rec, warmBaseline())

	require.Len(t, got, 3)
	assert.Equal(t, models.AnomalyCostSpike, got[0].Kind)
	assert.Equal(t, models.AnomalyTokenExplosion, got[1].Kind)
	assert.Equal(t, models.AnomalyRetryAmplification, got[2].Kind)
}

func TestEvaluate_ExplanationIsSelfContained(t *testing.T) {
	d := newDetector(t)

	rec := normalRecord()
	rec.EstimatedCostUSD = 15.00

	got := d.Evaluate(rec, warmBaseline())
	require.Len(t, got, 1)

	// The anomaly must carry observed, baseline and threshold values so
	// the explanation can be reconstructed without the source record.
	a := got[0]
	assert.NotZero(t, a.ObservedValue)
	assert.NotZero(t, a.BaselineValue)
	assert.NotZero(t, a.Threshold)
	assert.NotEmpty(t, a.Explanation)
}
