package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/services"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// policyDocument is the on-disk shape of the guardrail policy set.
type policyDocument struct {
	Policies []models.Policy `yaml:"policies" validate:"required,min=1"`
}

// LoadPolicies reads and validates the declarative guardrail policy set
// from a YAML file. The list order is preserved: within a category,
// policies are evaluated in the order configured here.
//
// All misconfiguration surfaces here as a ConfigurationError; evaluation
// itself never fails due to bad config.
func LoadPolicies(path string) ([]models.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.WrapConfiguration(fmt.Sprintf("failed to read policy file %s", path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // reject unknown keys, no silent misconfiguration

	var doc policyDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newPolicyConfigError().WithDetail("reason", "policy file is empty")
		}
		return nil, services.WrapConfiguration("failed to parse policy file", err)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, services.WrapConfiguration("policy file must declare at least one policy", err)
	}

	if err := ValidatePolicies(doc.Policies); err != nil {
		return nil, err
	}

	return doc.Policies, nil
}

// ValidatePolicies checks every policy for semantic correctness:
// known kind and action, exactly one parameter block matching the kind,
// and positive thresholds.
func ValidatePolicies(policies []models.Policy) error {
	seen := make(map[string]struct{}, len(policies))
	for i := range policies {
		p := &policies[i]
		if _, dup := seen[p.Name]; dup {
			return newPolicyConfigError().
				WithDetail("reason", "duplicate policy name").
				WithDetail("policy_name", p.Name)
		}
		seen[p.Name] = struct{}{}
		if err := validatePolicy(p); err != nil {
			var domainErr *services.DomainError
			if errors.As(err, &domainErr) {
				domainErr.WithDetail("policy_index", i).WithDetail("policy_name", p.Name)
			}
			return err
		}
	}
	return nil
}

func validatePolicy(p *models.Policy) error {
	if p.Name == "" {
		return newPolicyConfigError().WithDetail("reason", "policy name is required")
	}

	switch p.Kind {
	case models.PolicyKindHardLimit, models.PolicyKindBudget, models.PolicyKindAnomalyRule:
	default:
		return services.NewDomainError(services.ErrorTypeConfiguration, "unknown policy kind", nil).
			WithDetail("kind", string(p.Kind))
	}

	if !models.ValidAction(p.Action) {
		return services.NewDomainError(services.ErrorTypeConfiguration, "unknown policy action", nil).
			WithDetail("action", string(p.Action))
	}

	if err := validateParams(p); err != nil {
		return err
	}

	return nil
}

func validateParams(p *models.Policy) error {
	paramBlocks := 0
	if p.HardLimit != nil {
		paramBlocks++
	}
	if p.Budget != nil {
		paramBlocks++
	}
	if p.AnomalyRule != nil {
		paramBlocks++
	}
	if paramBlocks != 1 {
		return newPolicyConfigError().
			WithDetail("reason", "exactly one parameter block must be set").
			WithDetail("blocks_set", paramBlocks)
	}

	switch p.Kind {
	case models.PolicyKindHardLimit:
		if p.HardLimit == nil {
			return newPolicyConfigError().WithDetail("reason", "hard_limit policy requires hard_limit parameters")
		}
		if p.HardLimit.Metric != models.MetricCost && p.HardLimit.Metric != models.MetricTokens {
			return newPolicyConfigError().
				WithDetail("reason", "hard_limit metric must be cost or tokens").
				WithDetail("metric", string(p.HardLimit.Metric))
		}
		if p.HardLimit.Max <= 0 {
			return services.NewDomainError(services.ErrorTypeConfiguration, "policy threshold must be positive", nil).
				WithDetail("field", "hard_limit.max").
				WithDetail("value", p.HardLimit.Max)
		}

	case models.PolicyKindBudget:
		if p.Budget == nil {
			return newPolicyConfigError().WithDetail("reason", "budget policy requires budget parameters")
		}
		if p.Budget.LimitUSD <= 0 {
			return services.NewDomainError(services.ErrorTypeConfiguration, "policy threshold must be positive", nil).
				WithDetail("field", "budget.limit_usd").
				WithDetail("value", p.Budget.LimitUSD)
		}
		if p.Budget.WindowDays <= 0 {
			return services.NewDomainError(services.ErrorTypeConfiguration, "policy threshold must be positive", nil).
				WithDetail("field", "budget.window_days").
				WithDetail("value", p.Budget.WindowDays)
		}

	case models.PolicyKindAnomalyRule:
		if p.AnomalyRule == nil {
			return newPolicyConfigError().WithDetail("reason", "anomaly_rule policy requires anomaly_rule parameters")
		}
		if !models.ValidAnomalyKind(p.AnomalyRule.Anomaly) {
			return services.NewDomainError(services.ErrorTypeConfiguration, "unknown anomaly kind", nil).
				WithDetail("anomaly", string(p.AnomalyRule.Anomaly))
		}
	}

	return nil
}

// newPolicyConfigError returns a fresh invalid-policy error so details
// never leak onto the shared sentinel.
func newPolicyConfigError() *services.DomainError {
	return services.NewDomainError(services.ErrorTypeConfiguration, "invalid policy configuration", nil)
}
