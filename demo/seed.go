// Package demo seeds the ledger with deterministic usage history so
// baselines start warm and the simulate command has data to compare
// against.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/services/baseline"
	"github.com/upb/llm-cost-guard/services/ledger"
	"github.com/upb/llm-cost-guard/services/pricing"
	"go.uber.org/zap"
)

// seedRandom keeps the generated history identical across runs.
const seedRandom = 42

// profile describes the steady-state usage shape for one pair.
type profile struct {
	feature          string
	model            string
	promptTokens     int
	completionTokens int
	records          int
}

var profiles = []profile{
	{feature: "document_summary", model: "gpt-3.5-turbo", promptTokens: 1200, completionTokens: 300, records: 30},
	{feature: "document_summary", model: "gpt-4", promptTokens: 900, completionTokens: 300, records: 30},
	{feature: "support_chat", model: "gpt-3.5-turbo", promptTokens: 600, completionTokens: 200, records: 25},
}

// Seed appends deterministic demo history through the ledger service
// and returns the number of records written. Token counts jitter ±20%
// around each profile; costs come from the fixed rate card. One
// retry-heavy spike record per pair keeps anomaly output interesting.
func Seed(ctx context.Context, ledgerSvc *ledger.Service, logger *zap.Logger) (int, error) {
	rng := rand.New(rand.NewSource(seedRandom))
	start := time.Now().UTC().Add(-14 * 24 * time.Hour)

	total := 0
	for _, p := range profiles {
		for i := 0; i < p.records; i++ {
			prompt := jitter(rng, p.promptTokens)
			completion := jitter(rng, p.completionTokens)

			cost, err := pricing.EstimateCost(p.model, prompt, completion)
			if err != nil {
				return total, fmt.Errorf("failed to price demo record: %w", err)
			}

			rec := &models.UsageRecord{
				Timestamp:        start.Add(time.Duration(total) * 37 * time.Minute),
				Feature:          p.feature,
				Model:            p.model,
				PromptTokens:     prompt,
				CompletionTokens: completion,
				TotalTokens:      prompt + completion,
				EstimatedCostUSD: cost,
				Succeeded:        true,
			}
			if _, err := ledgerSvc.Append(ctx, rec); err != nil {
				return total, err
			}
			total++
		}

		if err := appendSpike(ctx, ledgerSvc, p, start, total); err != nil {
			return total, err
		}
		total++
	}

	logger.Info("demo history seeded",
		zap.Int("records", total),
		zap.Int("pairs", len(profiles)))

	return total, nil
}

// appendSpike writes one oversized, retried call for the pair.
func appendSpike(ctx context.Context, ledgerSvc *ledger.Service, p profile, start time.Time, ordinal int) error {
	prompt := p.promptTokens * 4
	completion := p.completionTokens * 4

	cost, err := pricing.EstimateCost(p.model, prompt, completion)
	if err != nil {
		return fmt.Errorf("failed to price demo spike: %w", err)
	}

	rec := &models.UsageRecord{
		Timestamp:        start.Add(time.Duration(ordinal) * 37 * time.Minute),
		Feature:          p.feature,
		Model:            p.model,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		EstimatedCostUSD: baseline.RoundCents(cost * 1.1),
		RetryCount:       4,
		Succeeded:        false,
	}
	_, err = ledgerSvc.Append(ctx, rec)
	return err
}

// jitter returns n varied by up to ±20%.
func jitter(rng *rand.Rand, n int) int {
	delta := int(float64(n) * 0.2)
	if delta == 0 {
		return n
	}
	return n - delta + rng.Intn(2*delta+1)
}
