package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
	"go.uber.org/zap"
)

// UsageRepository implements repositories.Ledger on PostgreSQL. Appends
// are single INSERT statements against a BIGSERIAL key, so id assignment
// is serialized by the database and reads only ever see committed rows.
type UsageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUsageRepository creates a new usage ledger repository
func NewUsageRepository(db *DB, logger *zap.Logger) repositories.Ledger {
	return &UsageRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `id, timestamp, feature, model, prompt_tokens, completion_tokens,
	total_tokens, estimated_cost_usd, retry_count, succeeded, request_id`

// Append inserts a usage record and returns the assigned id.
func (r *UsageRepository) Append(ctx context.Context, record *models.UsageRecord) (int64, error) {
	query := `
		INSERT INTO usage_records (
			timestamp, feature, model, prompt_tokens, completion_tokens,
			total_tokens, estimated_cost_usd, retry_count, succeeded, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		record.Timestamp,
		record.Feature,
		record.Model,
		record.PromptTokens,
		record.CompletionTokens,
		record.TotalTokens,
		record.EstimatedCostUSD,
		record.RetryCount,
		record.Succeeded,
		nullableString(record.RequestID),
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to append usage record: %w", err)
	}

	r.logger.Debug("usage record appended",
		zap.Int64("id", id),
		zap.String("feature", record.Feature),
		zap.String("model", record.Model))

	return id, nil
}

// Query returns committed records matching the filter in insertion order.
func (r *UsageRepository) Query(ctx context.Context, filter repositories.Filter) ([]*models.UsageRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM usage_records", recordColumns)

	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	if filter.Feature != "" && filter.Feature != "*" {
		args = append(args, filter.Feature)
		conditions = append(conditions, fmt.Sprintf("feature = $%d", len(args)))
	}
	if filter.Model != "" && filter.Model != "*" {
		args = append(args, filter.Model)
		conditions = append(conditions, fmt.Sprintf("model = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// History returns up to limit records for the pair, most recent first.
func (r *UsageRepository) History(ctx context.Context, feature, model string, limit int) ([]*models.UsageRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM usage_records
		WHERE feature = $1 AND model = $2
		ORDER BY id DESC
		LIMIT $3
	`, recordColumns)

	rows, err := r.db.QueryContext(ctx, query, feature, model, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanRecords(rows rowScanner) ([]*models.UsageRecord, error) {
	records := make([]*models.UsageRecord, 0)
	for rows.Next() {
		rec := &models.UsageRecord{}
		var requestID *string
		if err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&rec.Feature,
			&rec.Model,
			&rec.PromptTokens,
			&rec.CompletionTokens,
			&rec.TotalTokens,
			&rec.EstimatedCostUSD,
			&rec.RetryCount,
			&rec.Succeeded,
			&requestID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		if requestID != nil {
			rec.RequestID = *requestID
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
