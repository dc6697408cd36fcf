package models

// VerdictStatus is the single deterministic outcome of an evaluation.
type VerdictStatus string

const (
	VerdictPass VerdictStatus = "pass"
	VerdictWarn VerdictStatus = "warn"
	VerdictFail VerdictStatus = "fail"
)

// Verdict is the guardrail engine's output for one evaluated record.
// TriggeredPolicy is set only when an enforcement action decided the
// outcome; anomalies keep their fixed detection order.
type Verdict struct {
	Status          VerdictStatus `json:"status"`
	TriggeredPolicy *Policy       `json:"triggered_policy,omitempty"`
	Anomalies       []Anomaly     `json:"anomalies"`
	Explanation     string        `json:"explanation"`
}
