package anomaly

import (
	"fmt"

	"github.com/upb/llm-cost-guard/config"
	"github.com/upb/llm-cost-guard/models"
	"go.uber.org/zap"
)

// Detector compares an observed record against its baseline and emits
// typed anomalies. All thresholds are explicit multipliers and
// constants supplied via configuration, never fitted.
//
// A cold baseline suppresses the baseline-relative rules (cost_spike,
// token_explosion) but never the absolute retry_amplification rule, so
// "no data yet" cannot mask a retry storm. Anomalies are returned in
// the fixed order cost_spike, token_explosion, retry_amplification for
// deterministic downstream processing.
type Detector struct {
	thresholds config.ThresholdConfig
	logger     *zap.Logger
}

// NewDetector creates a new anomaly detector
func NewDetector(thresholds config.ThresholdConfig, logger *zap.Logger) *Detector {
	return &Detector{
		thresholds: thresholds,
		logger:     logger,
	}
}

// Evaluate returns the anomalies the record exhibits against the
// baseline, possibly none. It is a pure function of its inputs.
func (d *Detector) Evaluate(record *models.UsageRecord, baseline *models.Baseline) []models.Anomaly {
	anomalies := make([]models.Anomaly, 0, 3)

	if baseline.Warm() {
		if a, ok := d.costSpike(record, baseline.Stats); ok {
			anomalies = append(anomalies, a)
		}
		if a, ok := d.tokenExplosion(record, baseline.Stats); ok {
			anomalies = append(anomalies, a)
		}
	}

	if a, ok := d.retryAmplification(record); ok {
		anomalies = append(anomalies, a)
	}

	if len(anomalies) > 0 {
		kinds := make([]string, len(anomalies))
		for i, a := range anomalies {
			kinds[i] = string(a.Kind)
		}
		d.logger.Debug("anomalies detected",
			zap.String("feature", record.Feature),
			zap.String("model", record.Model),
			zap.Strings("kinds", kinds))
	}

	return anomalies
}

func (d *Detector) costSpike(record *models.UsageRecord, stats *models.BaselineStats) (models.Anomaly, bool) {
	threshold := stats.P90CostUSD * d.thresholds.SpikeFactor
	if record.EstimatedCostUSD <= threshold {
		return models.Anomaly{}, false
	}
	return models.Anomaly{
		Kind:          models.AnomalyCostSpike,
		ObservedValue: record.EstimatedCostUSD,
		BaselineValue: stats.P90CostUSD,
		Threshold:     threshold,
		Explanation: fmt.Sprintf("cost $%.2f exceeds P90 $%.2f x %.1f = $%.2f",
			record.EstimatedCostUSD, stats.P90CostUSD, d.thresholds.SpikeFactor, threshold),
	}, true
}

func (d *Detector) tokenExplosion(record *models.UsageRecord, stats *models.BaselineStats) (models.Anomaly, bool) {
	threshold := float64(stats.MedianTokens) * d.thresholds.TokenFactor
	if float64(record.TotalTokens) <= threshold {
		return models.Anomaly{}, false
	}
	return models.Anomaly{
		Kind:          models.AnomalyTokenExplosion,
		ObservedValue: float64(record.TotalTokens),
		BaselineValue: float64(stats.MedianTokens),
		Threshold:     threshold,
		Explanation: fmt.Sprintf("%d tokens exceed median %d x %.1f = %.0f",
			record.TotalTokens, stats.MedianTokens, d.thresholds.TokenFactor, threshold),
	}, true
}

func (d *Detector) retryAmplification(record *models.UsageRecord) (models.Anomaly, bool) {
	if record.RetryCount < d.thresholds.RetryThreshold {
		return models.Anomaly{}, false
	}
	costImpact := record.EstimatedCostUSD * float64(record.RetryCount)
	return models.Anomaly{
		Kind:          models.AnomalyRetryAmplification,
		ObservedValue: float64(record.RetryCount),
		BaselineValue: 0,
		Threshold:     float64(d.thresholds.RetryThreshold),
		Explanation: fmt.Sprintf("%d retries at $%.2f per attempt, estimated cost impact $%.2f (threshold %d retries)",
			record.RetryCount, record.EstimatedCostUSD, costImpact, d.thresholds.RetryThreshold),
	}, true
}
