package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories/memory"
	"github.com/upb/llm-cost-guard/services"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*Service, *memory.Ledger) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store := memory.NewLedger()
	return NewService(store, logger), store
}

func validRecord() *models.UsageRecord {
	return &models.UsageRecord{
		Timestamp:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Feature:          "document_summary",
		Model:            "gpt-4",
		PromptTokens:     900,
		CompletionTokens: 300,
		TotalTokens:      1200,
		EstimatedCostUSD: 6.15,
		Succeeded:        true,
	}
}

func TestService_Append(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	rec := validRecord()
	id, err := svc.Append(ctx, rec)

	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, 1, store.Size())
}

func TestService_AppendFillsTimestamp(t *testing.T) {
	svc, _ := newService(t)

	rec := validRecord()
	rec.Timestamp = time.Time{}

	_, err := svc.Append(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestService_AppendRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.UsageRecord)
	}{
		{"missing feature", func(r *models.UsageRecord) { r.Feature = "" }},
		{"missing model", func(r *models.UsageRecord) { r.Model = "" }},
		{"negative prompt tokens", func(r *models.UsageRecord) { r.PromptTokens = -1 }},
		{"token sum mismatch", func(r *models.UsageRecord) { r.TotalTokens = 999 }},
		{"negative cost", func(r *models.UsageRecord) { r.EstimatedCostUSD = -0.01 }},
		{"negative retries", func(r *models.UsageRecord) { r.RetryCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t)

			rec := validRecord()
			tt.mutate(rec)

			_, err := svc.Append(context.Background(), rec)

			require.Error(t, err)
			assert.True(t, services.IsValidationError(err), "expected validation error, got %v", err)
			assert.Equal(t, 0, store.Size(), "ledger size must be unchanged after a rejected append")
		})
	}
}

func TestService_AppendTokenSumMismatchDetails(t *testing.T) {
	svc, _ := newService(t)

	rec := validRecord()
	rec.TotalTokens = 1000

	_, err := svc.Append(context.Background(), rec)
	require.Error(t, err)
	require.True(t, errors.Is(err, services.ErrTokenSumMismatch))

	details := services.GetErrorDetails(err)
	assert.Equal(t, "total_tokens", details["field"])
	assert.Equal(t, 1200, details["expected"])
	assert.Equal(t, 1000, details["actual"])
}

func TestService_HistoryPassthrough(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := validRecord()
		rec.EstimatedCostUSD = float64(i)
		_, err := svc.Append(ctx, rec)
		require.NoError(t, err)
	}

	records, err := svc.History(ctx, "document_summary", "gpt-4", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2.0, records[0].EstimatedCostUSD)
}

func TestValidateRecord_NilRecord(t *testing.T) {
	err := ValidateRecord(nil)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestValidateRecord_ZeroCostAllowed(t *testing.T) {
	rec := validRecord()
	rec.EstimatedCostUSD = 0
	assert.NoError(t, ValidateRecord(rec))
}
