package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/upb/llm-cost-guard/repositories"
	"github.com/upb/llm-cost-guard/services/ledger"
	"github.com/upb/llm-cost-guard/utils"
	"go.uber.org/zap"
)

// defaultUsageLimit caps unbounded usage listings.
const defaultUsageLimit = 100

// UsageHandler exposes read access to the usage ledger
type UsageHandler struct {
	ledger *ledger.Service
	logger *zap.Logger
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(ledgerSvc *ledger.Service, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		ledger: ledgerSvc,
		logger: logger,
	}
}

// HandleListUsage handles GET /api/v1/usage with optional feature,
// model, since, until and limit query parameters.
func (h *UsageHandler) HandleListUsage(w http.ResponseWriter, r *http.Request) {
	filter := repositories.Filter{
		Feature: r.URL.Query().Get("feature"),
		Model:   r.URL.Query().Get("model"),
		Limit:   defaultUsageLimit,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			_ = utils.WriteBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		filter.Limit = limit
	}

	var ok bool
	if filter.Since, ok = parseTimeParam(w, r, "since"); !ok {
		return
	}
	if filter.Until, ok = parseTimeParam(w, r, "until"); !ok {
		return
	}

	records, err := h.ledger.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query usage records", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("listed usage records",
		zap.String("feature", filter.Feature),
		zap.String("model", filter.Model),
		zap.Int("count", len(records)))

	_ = utils.WriteOK(w, records)
}

func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		_ = utils.WriteBadRequest(w, name+" must be an RFC 3339 timestamp", nil)
		return time.Time{}, false
	}
	return t, true
}
