package baseline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/upb/llm-cost-guard/config"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
	"go.uber.org/zap"
)

// Service computes per (feature, model) statistical baselines from
// ledger history. Baselines are derived on demand and never stored:
// recomputing against an unchanged ledger yields identical values.
//
// Order statistics are deterministic: the median is the middle element
// of the ascending sort, or the mean of the two middle elements for
// even counts; P90 uses the nearest-rank method, the value at rank
// ceil(0.9 * n) (1-indexed). Currency statistics are rounded half-up
// to the cent.
type Service struct {
	ledger repositories.Ledger
	cfg    config.BaselineConfig
	logger *zap.Logger
}

// NewService creates a new baseline service
func NewService(ledger repositories.Ledger, cfg config.BaselineConfig, logger *zap.Logger) *Service {
	return &Service{
		ledger: ledger,
		cfg:    cfg,
		logger: logger,
	}
}

// Compute derives the baseline for a (feature, model) pair from the
// most recent WindowSize records. An empty window is not an error: it
// yields a cold baseline with nil stats.
func (s *Service) Compute(ctx context.Context, feature, model string) (*models.Baseline, error) {
	records, err := s.ledger.History(ctx, feature, model, s.cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline window: %w", err)
	}

	b := &models.Baseline{
		Feature:     feature,
		Model:       model,
		SampleCount: len(records),
		State:       models.BaselineCold,
	}

	if len(records) == 0 {
		return b, nil
	}

	if len(records) >= s.cfg.WarmThreshold {
		b.State = models.BaselineWarm
		b.Stats = computeStats(records)
	}

	s.logger.Debug("baseline computed",
		zap.String("feature", feature),
		zap.String("model", model),
		zap.Int("sample_count", b.SampleCount),
		zap.String("state", string(b.State)))

	return b, nil
}

func computeStats(records []*models.UsageRecord) *models.BaselineStats {
	costs := make([]float64, len(records))
	tokens := make([]float64, len(records))
	for i, rec := range records {
		costs[i] = rec.EstimatedCostUSD
		tokens[i] = float64(rec.TotalTokens)
	}
	sort.Float64s(costs)
	sort.Float64s(tokens)

	return &models.BaselineStats{
		MedianCostUSD: RoundCents(median(costs)),
		P90CostUSD:    RoundCents(nearestRank(costs, 0.9)),
		MedianTokens:  int(math.Floor(median(tokens) + 0.5)),
	}
}

// median returns the middle element of an ascending-sorted slice, or
// the mean of the two middle elements for even counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// nearestRank returns the value at rank ceil(p * n), 1-indexed, of an
// ascending-sorted slice.
func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// RoundCents rounds a dollar amount half-up to the cent. The epsilon
// keeps amounts like 1.005, which scale to 100.4999... in binary
// floating point, on the half-up side of the boundary.
func RoundCents(v float64) float64 {
	return math.Floor(v*100+0.5+1e-9) / 100
}
