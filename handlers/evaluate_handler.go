package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/services/evaluation"
	"github.com/upb/llm-cost-guard/services/pricing"
	"github.com/upb/llm-cost-guard/utils"
	"go.uber.org/zap"
)

// EvaluateRequest represents a request to evaluate one LLM call.
// EstimatedCostUSD is optional: when omitted it is derived from the
// token counts via the fixed rate card.
type EvaluateRequest struct {
	Feature          string   `json:"feature" validate:"required"`
	Model            string   `json:"model" validate:"required"`
	PromptTokens     int      `json:"prompt_tokens" validate:"gte=0"`
	CompletionTokens int      `json:"completion_tokens" validate:"gte=0"`
	EstimatedCostUSD *float64 `json:"estimated_cost_usd,omitempty" validate:"omitempty,gte=0"`
	RetryCount       int      `json:"retry_count" validate:"gte=0"`
	Succeeded        bool     `json:"succeeded"`
	RequestID        string   `json:"request_id,omitempty"`
}

// EvaluateResponse wraps the verdict returned for an evaluated call.
type EvaluateResponse struct {
	RecordID int64           `json:"record_id,omitempty"`
	Verdict  *models.Verdict `json:"verdict"`
}

// EvaluateHandler handles live and simulated evaluation requests
type EvaluateHandler struct {
	eval   *evaluation.Service
	logger *zap.Logger
}

// NewEvaluateHandler creates a new EvaluateHandler
func NewEvaluateHandler(eval *evaluation.Service, logger *zap.Logger) *EvaluateHandler {
	return &EvaluateHandler{
		eval:   eval,
		logger: logger,
	}
}

// HandleEvaluate handles POST /api/v1/evaluate. The record is appended
// to the ledger and the verdict tells the caller whether to proceed.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	record, ok := h.parseRecord(w, r)
	if !ok {
		return
	}

	verdict, err := h.eval.EvaluateLive(r.Context(), record)
	if err != nil {
		h.logger.Warn("live evaluation failed",
			zap.String("feature", record.Feature),
			zap.String("model", record.Model),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("call evaluated",
		zap.Int64("record_id", record.ID),
		zap.String("feature", record.Feature),
		zap.String("status", string(verdict.Status)))

	_ = utils.WriteCreated(w, EvaluateResponse{RecordID: record.ID, Verdict: verdict})
}

// HandleSimulate handles POST /api/v1/simulate. The record is evaluated
// against existing history without being persisted.
func (h *EvaluateHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	record, ok := h.parseRecord(w, r)
	if !ok {
		return
	}

	report, err := h.eval.Simulate(r.Context(), record)
	if err != nil {
		h.logger.Warn("simulation failed",
			zap.String("feature", record.Feature),
			zap.String("model", record.Model),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, report)
}

func (h *EvaluateHandler) parseRecord(w http.ResponseWriter, r *http.Request) (*models.UsageRecord, bool) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed", zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return nil, false
	}

	cost := 0.0
	if req.EstimatedCostUSD != nil {
		cost = *req.EstimatedCostUSD
	} else {
		estimated, err := pricing.EstimateCost(req.Model, req.PromptTokens, req.CompletionTokens)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return nil, false
		}
		cost = estimated
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return &models.UsageRecord{
		Feature:          req.Feature,
		Model:            req.Model,
		PromptTokens:     req.PromptTokens,
		CompletionTokens: req.CompletionTokens,
		TotalTokens:      req.PromptTokens + req.CompletionTokens,
		EstimatedCostUSD: cost,
		RetryCount:       req.RetryCount,
		Succeeded:        req.Succeeded,
		RequestID:        requestID,
	}, true
}
