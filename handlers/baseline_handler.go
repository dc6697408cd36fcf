package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/llm-cost-guard/services/baseline"
	"github.com/upb/llm-cost-guard/utils"
	"go.uber.org/zap"
)

// BaselineHandler exposes computed baselines for inspection
type BaselineHandler struct {
	baseline *baseline.Service
	logger   *zap.Logger
}

// NewBaselineHandler creates a new BaselineHandler
func NewBaselineHandler(baselineSvc *baseline.Service, logger *zap.Logger) *BaselineHandler {
	return &BaselineHandler{
		baseline: baselineSvc,
		logger:   logger,
	}
}

// HandleGetBaseline handles GET /api/v1/baselines/{feature}/{model}
func (h *BaselineHandler) HandleGetBaseline(w http.ResponseWriter, r *http.Request) {
	feature := chi.URLParam(r, "feature")
	model := chi.URLParam(r, "model")
	if feature == "" || model == "" {
		_ = utils.WriteBadRequest(w, "feature and model are required", nil)
		return
	}

	b, err := h.baseline.Compute(r.Context(), feature, model)
	if err != nil {
		h.logger.Error("failed to compute baseline",
			zap.String("feature", feature),
			zap.String("model", model),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, b)
}
