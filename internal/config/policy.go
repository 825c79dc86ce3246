package config

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/clusterpilot/clusterpilot/internal/autoscaler"
	"github.com/clusterpilot/clusterpilot/internal/metricstore"
)

// PolicyEntry is the YAML shape of one scaling policy. Durations use
// Go syntax ("60s", "5m").
type PolicyEntry struct {
	Metric             string  `yaml:"metric"`
	Target             float64 `yaml:"target"`
	ScaleUpThreshold   float64 `yaml:"scale_up_threshold"`
	ScaleDownThreshold float64 `yaml:"scale_down_threshold"`
	MinReplicas        int     `yaml:"min_replicas"`
	MaxReplicas        int     `yaml:"max_replicas"`
	ScaleUpCooldown    string  `yaml:"scale_up_cooldown"`
	ScaleDownCooldown  string  `yaml:"scale_down_cooldown"`
	AggregationWindow  string  `yaml:"aggregation_window"`
}

// policyFile is the top-level YAML document.
type policyFile struct {
	Policies []PolicyEntry `yaml:"policies"`
}

// ToPolicy converts the entry to an autoscaler policy. The policy is
// not yet validated; registration with the autoscaler does that.
func (e PolicyEntry) ToPolicy() (autoscaler.Policy, error) {
	parse := func(field, s string) (time.Duration, error) {
		if s == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
		}
		return d, nil
	}

	up, err := parse("scale_up_cooldown", e.ScaleUpCooldown)
	if err != nil {
		return autoscaler.Policy{}, err
	}
	down, err := parse("scale_down_cooldown", e.ScaleDownCooldown)
	if err != nil {
		return autoscaler.Policy{}, err
	}
	window, err := parse("aggregation_window", e.AggregationWindow)
	if err != nil {
		return autoscaler.Policy{}, err
	}

	return autoscaler.Policy{
		MetricType:         metricstore.MetricType(e.Metric),
		TargetValue:        e.Target,
		ScaleUpThreshold:   e.ScaleUpThreshold,
		ScaleDownThreshold: e.ScaleDownThreshold,
		MinReplicas:        e.MinReplicas,
		MaxReplicas:        e.MaxReplicas,
		ScaleUpCooldown:    up,
		ScaleDownCooldown:  down,
		AggregationWindow:  window,
	}, nil
}

// ParsePolicyFile parses scaling policies from YAML. Entries that fail
// to parse or validate are skipped with a log, so one bad entry never
// discards the rest of the file.
func ParsePolicyFile(data []byte, log logr.Logger) ([]autoscaler.Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	policies := make([]autoscaler.Policy, 0, len(file.Policies))
	for i, entry := range file.Policies {
		policy, err := entry.ToPolicy()
		if err != nil {
			log.Info("Skipping unparsable policy entry", "index", i, "error", err.Error())
			continue
		}
		if err := policy.Validate(); err != nil {
			log.Info("Skipping invalid policy entry", "index", i, "error", err.Error())
			continue
		}
		policies = append(policies, policy)
	}
	return policies, nil
}
