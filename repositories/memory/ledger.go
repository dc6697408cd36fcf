package memory

import (
	"context"
	"sync"

	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
)

// Ledger is an in-process, append-only implementation of
// repositories.Ledger. A single mutex serializes appends so id
// assignment is strictly increasing with no gaps, and readers always
// see a consistent snapshot.
type Ledger struct {
	mu      sync.RWMutex
	records []*models.UsageRecord
	nextID  int64
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{nextID: 1}
}

// Append stores a copy of the record and returns its assigned id.
func (l *Ledger) Append(ctx context.Context, record *models.UsageRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stored := *record
	stored.ID = l.nextID
	l.nextID++
	l.records = append(l.records, &stored)

	return stored.ID, nil
}

// Query returns copies of committed records matching the filter in
// insertion order.
func (l *Ledger) Query(ctx context.Context, filter repositories.Filter) ([]*models.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	matched := make([]*models.UsageRecord, 0)
	for _, rec := range l.records {
		if !matches(rec, filter) {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}
	return matched, nil
}

// History returns copies of up to limit records for the pair, most
// recent first. Insertion order stands in for time order: ids are
// assigned monotonically, so the newest records are at the tail.
func (l *Ledger) History(ctx context.Context, feature, model string, limit int) ([]*models.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	matched := make([]*models.UsageRecord, 0)
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.Feature != feature || rec.Model != model {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// Size returns the number of committed records.
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func matches(rec *models.UsageRecord, filter repositories.Filter) bool {
	if filter.Feature != "" && filter.Feature != "*" && rec.Feature != filter.Feature {
		return false
	}
	if filter.Model != "" && filter.Model != "*" && rec.Model != filter.Model {
		return false
	}
	if !filter.Since.IsZero() && rec.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && rec.Timestamp.After(filter.Until) {
		return false
	}
	return true
}
