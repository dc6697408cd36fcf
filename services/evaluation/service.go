package evaluation

import (
	"context"
	"time"

	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
	"github.com/upb/llm-cost-guard/services/anomaly"
	"github.com/upb/llm-cost-guard/services/baseline"
	"github.com/upb/llm-cost-guard/services/guardrail"
	"github.com/upb/llm-cost-guard/services/ledger"
	"go.uber.org/zap"
)

// impactWindowDays is the trailing window used to project request
// volume for monthly impact estimates.
const impactWindowDays = 30

// Service is the shared entry point for the live-request path and the
// CI simulation path. Both run the identical pipeline through a single
// evaluate function parameterized only by whether the record is
// persisted first, so a verdict produced in CI is reproducible at
// runtime against the same ledger.
type Service struct {
	ledger   *ledger.Service
	baseline *baseline.Service
	detector *anomaly.Detector
	engine   *guardrail.Engine
	logger   *zap.Logger
}

// NewService creates a new evaluation service
func NewService(
	ledgerSvc *ledger.Service,
	baselineSvc *baseline.Service,
	detector *anomaly.Detector,
	engine *guardrail.Engine,
	logger *zap.Logger,
) *Service {
	return &Service{
		ledger:   ledgerSvc,
		baseline: baselineSvc,
		detector: detector,
		engine:   engine,
		logger:   logger,
	}
}

// SimulationReport is the CI-facing summary of a simulated evaluation.
// PercentChange is nil when the baseline is cold or has a zero median,
// since a percentage against no data would be fabricated.
type SimulationReport struct {
	Feature                   string               `json:"feature"`
	Model                     string               `json:"model"`
	BaselineState             models.BaselineState `json:"baseline_state"`
	SampleCount               int                  `json:"sample_count"`
	BaselineCostPerRequest    float64              `json:"baseline_cost_per_request"`
	SimulatedCostPerRequest   float64              `json:"simulated_cost_per_request"`
	PercentChange             *float64             `json:"percent_change,omitempty"`
	EstimatedMonthlyImpactUSD float64              `json:"estimated_monthly_impact_usd"`
	Verdict                   *models.Verdict      `json:"verdict"`
}

// EvaluateLive appends the record to the ledger, then evaluates it.
// The returned verdict tells the caller whether to proceed, retry, or
// abort; the record itself is already committed either way, since the
// ledger is the audit trail of what actually happened.
func (s *Service) EvaluateLive(ctx context.Context, record *models.UsageRecord) (*models.Verdict, error) {
	verdict, _, err := s.evaluate(ctx, record, true)
	return verdict, err
}

// EvaluateSimulated evaluates a hypothetical record against existing
// ledger history without appending it.
func (s *Service) EvaluateSimulated(ctx context.Context, record *models.UsageRecord) (*models.Verdict, error) {
	verdict, _, err := s.evaluate(ctx, record, false)
	return verdict, err
}

// Simulate runs a read-only evaluation and wraps the verdict in the
// cost-impact report the CI gate prints.
func (s *Service) Simulate(ctx context.Context, record *models.UsageRecord) (*SimulationReport, error) {
	verdict, base, err := s.evaluate(ctx, record, false)
	if err != nil {
		return nil, err
	}

	report := &SimulationReport{
		Feature:                 record.Feature,
		Model:                   record.Model,
		BaselineState:           base.State,
		SampleCount:             base.SampleCount,
		SimulatedCostPerRequest: record.EstimatedCostUSD,
		Verdict:                 verdict,
	}

	if base.Warm() {
		report.BaselineCostPerRequest = base.Stats.MedianCostUSD
		if base.Stats.MedianCostUSD > 0 {
			change := (record.EstimatedCostUSD - base.Stats.MedianCostUSD) / base.Stats.MedianCostUSD * 100
			report.PercentChange = &change
		}
	}

	volume, err := s.recentVolume(ctx, record)
	if err != nil {
		return nil, err
	}
	report.EstimatedMonthlyImpactUSD = baseline.RoundCents(record.EstimatedCostUSD * float64(volume))

	return report, nil
}

// evaluate is the single pipeline both paths share: validate/persist,
// compute the baseline, detect anomalies, decide. Any divergence
// between live and simulated behavior belongs in the persist branch
// and nowhere else.
func (s *Service) evaluate(ctx context.Context, record *models.UsageRecord, persist bool) (*models.Verdict, *models.Baseline, error) {
	if persist {
		if _, err := s.ledger.Append(ctx, record); err != nil {
			return nil, nil, err
		}
	} else {
		if err := ledger.ValidateRecord(record); err != nil {
			return nil, nil, err
		}
		if record.Timestamp.IsZero() {
			record.Timestamp = time.Now().UTC()
		}
	}

	base, err := s.baseline.Compute(ctx, record.Feature, record.Model)
	if err != nil {
		return nil, nil, err
	}

	anomalies := s.detector.Evaluate(record, base)

	verdict, err := s.engine.Decide(ctx, record, anomalies)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("record evaluated",
		zap.String("feature", record.Feature),
		zap.String("model", record.Model),
		zap.Bool("persisted", persist),
		zap.String("status", string(verdict.Status)),
		zap.Int("anomalies", len(anomalies)))

	return verdict, base, nil
}

// recentVolume counts requests for the pair over the trailing impact
// window, anchored at the record's timestamp for reproducibility.
func (s *Service) recentVolume(ctx context.Context, record *models.UsageRecord) (int, error) {
	since := record.Timestamp.Add(-impactWindowDays * 24 * time.Hour)
	matches, err := s.ledger.Query(ctx, repositories.Filter{
		Feature: record.Feature,
		Model:   record.Model,
		Since:   since,
		Until:   record.Timestamp,
	})
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
