package handlers

import (
	"net/http"

	"github.com/upb/llm-cost-guard/services/guardrail"
	"github.com/upb/llm-cost-guard/utils"
	"go.uber.org/zap"
)

// PolicyHandler exposes the loaded guardrail policy set. Policies are
// declarative configuration loaded at startup; the API is read-only.
type PolicyHandler struct {
	engine *guardrail.Engine
	logger *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(engine *guardrail.Engine, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		engine: engine,
		logger: logger,
	}
}

// HandleListPolicies handles GET /api/v1/policies
func (h *PolicyHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.engine.Policies()

	h.logger.Debug("listed policies", zap.Int("count", len(policies)))

	_ = utils.WriteOK(w, policies)
}
