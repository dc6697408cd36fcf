package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-cost-guard/config"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories/memory"
	"github.com/upb/llm-cost-guard/services/baseline"
	"go.uber.org/zap"
)

func newBaselineRouter(t *testing.T) (*chi.Mux, *memory.Ledger) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store := memory.NewLedger()
	svc := baseline.NewService(store, config.BaselineConfig{WindowSize: 500, WarmThreshold: 5}, logger)
	handler := NewBaselineHandler(svc, logger)

	r := chi.NewRouter()
	r.Get("/api/v1/baselines/{feature}/{model}", handler.HandleGetBaseline)
	return r, store
}

func TestHandleGetBaseline_Cold(t *testing.T) {
	router, _ := newBaselineRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/baselines/chat/gpt-4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.Baseline `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BaselineCold, resp.Data.State)
	assert.Equal(t, 0, resp.Data.SampleCount)
	assert.Nil(t, resp.Data.Stats)
}

func TestHandleGetBaseline_Warm(t *testing.T) {
	router, store := newBaselineRouter(t)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, &models.UsageRecord{
			Timestamp:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			Feature:          "chat",
			Model:            "gpt-4",
			PromptTokens:     100,
			TotalTokens:      100,
			EstimatedCostUSD: 2.00,
			Succeeded:        true,
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/baselines/chat/gpt-4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.Baseline `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BaselineWarm, resp.Data.State)
	require.NotNil(t, resp.Data.Stats)
	assert.Equal(t, 2.00, resp.Data.Stats.MedianCostUSD)
}
