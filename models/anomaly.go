package models

// AnomalyKind identifies one of the fixed anomaly detection rules.
type AnomalyKind string

const (
	AnomalyCostSpike          AnomalyKind = "cost_spike"
	AnomalyTokenExplosion     AnomalyKind = "token_explosion"
	AnomalyRetryAmplification AnomalyKind = "retry_amplification"
)

// ValidAnomalyKind reports whether kind names a known detection rule.
func ValidAnomalyKind(kind AnomalyKind) bool {
	switch kind {
	case AnomalyCostSpike, AnomalyTokenExplosion, AnomalyRetryAmplification:
		return true
	}
	return false
}

// Anomaly is one detected deviation from baseline behavior. It carries
// the observed value, the baseline value and the threshold that was
// crossed, so the explanation can be reconstructed without the source
// record.
type Anomaly struct {
	Kind          AnomalyKind `json:"kind"`
	ObservedValue float64     `json:"observed_value"`
	BaselineValue float64     `json:"baseline_value"`
	Threshold     float64     `json:"threshold"`
	Explanation   string      `json:"explanation"`
}
