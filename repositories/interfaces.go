package repositories

import (
	"context"
	"time"

	"github.com/upb/llm-cost-guard/models"
)

// Filter narrows ledger queries. Zero-valued fields are ignored.
type Filter struct {
	Feature string
	Model   string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// Ledger is the append-only store of usage records. Implementations
// serialize Append so id assignment is strictly increasing, and reads
// only ever observe fully committed records.
type Ledger interface {
	// Append stores a record and returns its assigned id.
	// Existing records are never mutated or removed.
	Append(ctx context.Context, record *models.UsageRecord) (int64, error)

	// Query returns committed records matching the filter in insertion order.
	Query(ctx context.Context, filter Filter) ([]*models.UsageRecord, error)

	// History returns up to limit records for the (feature, model) pair,
	// most recent first.
	History(ctx context.Context, feature, model string, limit int) ([]*models.UsageRecord, error)
}
