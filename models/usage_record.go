package models

import (
	"time"
)

// UsageRecord is one immutable observation of a completed LLM call.
// Records form an append-only ledger: once appended they are never
// updated or deleted, and their ID is assigned by the ledger on append.
type UsageRecord struct {
	ID               int64     `json:"id" db:"id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	Feature          string    `json:"feature" db:"feature"`
	Model            string    `json:"model" db:"model"`
	PromptTokens     int       `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens" db:"total_tokens"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd" db:"estimated_cost_usd"`
	RetryCount       int       `json:"retry_count" db:"retry_count"`
	Succeeded        bool      `json:"succeeded" db:"succeeded"`
	RequestID        string    `json:"request_id,omitempty" db:"request_id"`
}

// NewUsageRecord creates an unappended usage record with a derived total
// token count. The ID stays zero until the ledger assigns one.
func NewUsageRecord(feature, model string, promptTokens, completionTokens int, costUSD float64) *UsageRecord {
	return &UsageRecord{
		Timestamp:        time.Now().UTC(),
		Feature:          feature,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		EstimatedCostUSD: costUSD,
		Succeeded:        true,
	}
}
