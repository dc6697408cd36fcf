package models

// BaselineState indicates whether a baseline has enough samples to be
// trusted for percentage-based comparisons.
type BaselineState string

const (
	BaselineCold BaselineState = "cold"
	BaselineWarm BaselineState = "warm"
)

// WarmThreshold is the minimum sample count for a warm baseline.
const WarmThreshold = 20

// BaselineStats holds the order statistics of a warm baseline.
type BaselineStats struct {
	MedianCostUSD float64 `json:"median_cost_usd"`
	P90CostUSD    float64 `json:"p90_cost_usd"`
	MedianTokens  int     `json:"median_tokens"`
}

// Baseline is the statistical summary of recent usage for one
// (feature, model) pair. Stats is nil while the baseline is cold so
// callers cannot read warm-only fields from insufficient data.
type Baseline struct {
	Feature     string         `json:"feature"`
	Model       string         `json:"model"`
	SampleCount int            `json:"sample_count"`
	State       BaselineState  `json:"state"`
	Stats       *BaselineStats `json:"stats,omitempty"`
}

// Warm reports whether baseline-relative comparisons are allowed.
func (b *Baseline) Warm() bool {
	return b.State == BaselineWarm && b.Stats != nil
}
