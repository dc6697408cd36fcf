package models

// PolicyKind represents the guardrail category a policy belongs to.
// Categories are always evaluated in the fixed order
// hard_limit -> budget -> anomaly_rule.
type PolicyKind string

const (
	PolicyKindHardLimit   PolicyKind = "hard_limit"
	PolicyKindBudget      PolicyKind = "budget"
	PolicyKindAnomalyRule PolicyKind = "anomaly_rule"
)

// PolicyKindOrder is the fixed category evaluation order.
var PolicyKindOrder = []PolicyKind{PolicyKindHardLimit, PolicyKindBudget, PolicyKindAnomalyRule}

// PolicyAction is the enforcement action a matching policy takes.
type PolicyAction string

const (
	ActionBlock     PolicyAction = "block"
	ActionThrottle  PolicyAction = "throttle"
	ActionDowngrade PolicyAction = "downgrade"
	ActionWarn      PolicyAction = "warn"
)

// Blocking reports whether the action stops the call. Throttle and
// downgrade are enforcement actions: the call must not proceed as
// issued, so they fail the verdict just like block.
func (a PolicyAction) Blocking() bool {
	return a == ActionBlock || a == ActionThrottle || a == ActionDowngrade
}

// ValidAction reports whether a names a known enforcement action.
func ValidAction(a PolicyAction) bool {
	return a.Blocking() || a == ActionWarn
}

// PolicyScope matches policies against (feature, model) pairs.
// An empty or "*" field matches any value.
type PolicyScope struct {
	Feature string `json:"feature,omitempty" yaml:"feature,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Matches reports whether the scope applies to the given pair.
func (s PolicyScope) Matches(feature, model string) bool {
	return matchScopeField(s.Feature, feature) && matchScopeField(s.Model, model)
}

func matchScopeField(pattern, value string) bool {
	return pattern == "" || pattern == "*" || pattern == value
}

// HardLimitMetric selects which record attribute a hard limit caps.
type HardLimitMetric string

const (
	MetricCost   HardLimitMetric = "cost"
	MetricTokens HardLimitMetric = "tokens"
)

// HardLimitParams caps a single record attribute at an absolute ceiling.
type HardLimitParams struct {
	Metric HardLimitMetric `json:"metric" yaml:"metric"`
	Max    float64         `json:"max" yaml:"max"`
}

// BudgetParams caps cumulative scope spend over a rolling window.
type BudgetParams struct {
	LimitUSD   float64 `json:"limit_usd" yaml:"limit_usd"`
	WindowDays int     `json:"window_days" yaml:"window_days"`
}

// AnomalyRuleParams triggers on the presence of a detected anomaly kind.
type AnomalyRuleParams struct {
	Anomaly AnomalyKind `json:"anomaly" yaml:"anomaly"`
}

// Policy is one guardrail rule. Exactly one of the parameter blocks is
// set, matching Kind. Policies are loaded from configuration and are
// read-only to the evaluation core.
type Policy struct {
	Name        string             `json:"name" yaml:"name"`
	Kind        PolicyKind         `json:"kind" yaml:"kind"`
	Scope       PolicyScope        `json:"scope,omitempty" yaml:"scope,omitempty"`
	Action      PolicyAction       `json:"action" yaml:"action"`
	HardLimit   *HardLimitParams   `json:"hard_limit,omitempty" yaml:"hard_limit,omitempty"`
	Budget      *BudgetParams      `json:"budget,omitempty" yaml:"budget,omitempty"`
	AnomalyRule *AnomalyRuleParams `json:"anomaly_rule,omitempty" yaml:"anomaly_rule,omitempty"`
}
