package ledger

import (
	"context"
	"time"

	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
	"github.com/upb/llm-cost-guard/services"
	"go.uber.org/zap"
)

// Service is the cost ledger: the sole source of truth for usage
// history. It validates records at the boundary and delegates storage
// to an append-only repository. A record that fails validation is
// never partially recorded.
type Service struct {
	store  repositories.Ledger
	logger *zap.Logger
}

// NewService creates a new ledger service
func NewService(store repositories.Ledger, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Append validates the record and stores it, returning the assigned id.
// The record's ID and, when unset, Timestamp are filled in place.
func (s *Service) Append(ctx context.Context, record *models.UsageRecord) (int64, error) {
	if err := ValidateRecord(record); err != nil {
		return 0, err
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	id, err := s.store.Append(ctx, record)
	if err != nil {
		return 0, services.WrapInternal("failed to append usage record", err)
	}
	record.ID = id

	s.logger.Debug("usage record appended",
		zap.Int64("id", id),
		zap.String("feature", record.Feature),
		zap.String("model", record.Model),
		zap.Float64("estimated_cost_usd", record.EstimatedCostUSD))

	return id, nil
}

// Query returns committed records matching the filter in insertion order.
func (s *Service) Query(ctx context.Context, filter repositories.Filter) ([]*models.UsageRecord, error) {
	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to query ledger", err)
	}
	return records, nil
}

// History returns up to limit records for the pair, most recent first.
func (s *Service) History(ctx context.Context, feature, model string, limit int) ([]*models.UsageRecord, error) {
	records, err := s.store.History(ctx, feature, model, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to query ledger history", err)
	}
	return records, nil
}

// ValidateRecord checks the usage record invariants. Every violation
// reports the offending field and the expected invariant so callers can
// fix the input.
func ValidateRecord(record *models.UsageRecord) error {
	if record == nil {
		return services.ErrInvalidRecord
	}
	if record.Feature == "" {
		return services.ErrMissingFeature
	}
	if record.Model == "" {
		return services.ErrMissingModel
	}
	if record.PromptTokens < 0 || record.CompletionTokens < 0 || record.TotalTokens < 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "token counts cannot be negative", nil).
			WithDetail("prompt_tokens", record.PromptTokens).
			WithDetail("completion_tokens", record.CompletionTokens).
			WithDetail("total_tokens", record.TotalTokens)
	}
	if record.TotalTokens != record.PromptTokens+record.CompletionTokens {
		return services.NewDomainError(services.ErrorTypeValidation, "total tokens must equal prompt plus completion tokens", nil).
			WithDetail("field", "total_tokens").
			WithDetail("expected", record.PromptTokens+record.CompletionTokens).
			WithDetail("actual", record.TotalTokens)
	}
	if record.EstimatedCostUSD < 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "estimated cost cannot be negative", nil).
			WithDetail("field", "estimated_cost_usd").
			WithDetail("actual", record.EstimatedCostUSD)
	}
	if record.RetryCount < 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "retry count cannot be negative", nil).
			WithDetail("field", "retry_count").
			WithDetail("actual", record.RetryCount)
	}
	return nil
}
