/*
Copyright 2026 The clusterpilot Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package autoscaler

import (
	"errors"
	"fmt"
	"time"

	"github.com/clusterpilot/clusterpilot/internal/metricstore"
)

// ErrInvalidPolicy wraps all policy validation failures, so callers
// can detect misconfiguration with errors.Is.
var ErrInvalidPolicy = errors.New("invalid scaling policy")

// Policy maps a metric's windowed average to a desired replica count,
// with hysteresis via thresholds and cooldowns. Policies are immutable
// after being added to an AutoScaler; replace, don't mutate.
type Policy struct {
	// MetricType is the metric this policy evaluates.
	MetricType metricstore.MetricType

	// TargetValue is the steady-state value the policy aims for. The
	// replica proposal is current × (average / target).
	TargetValue float64

	// ScaleUpThreshold triggers scale-up when the windowed average
	// reaches it.
	ScaleUpThreshold float64

	// ScaleDownThreshold triggers scale-down when the windowed average
	// falls to it. Must be below ScaleUpThreshold.
	ScaleDownThreshold float64

	// MinReplicas and MaxReplicas clamp every proposal.
	MinReplicas int
	MaxReplicas int

	// ScaleUpCooldown is the minimum wait between scale-ups.
	ScaleUpCooldown time.Duration

	// ScaleDownCooldown is the minimum wait between scale-downs.
	// Intentionally longer in practice: over-provisioning is cheaper
	// than thrashing capacity down and up.
	ScaleDownCooldown time.Duration

	// AggregationWindow is the trailing window the metric is averaged
	// over.
	AggregationWindow time.Duration
}

// Validate checks the policy bounds at registration time, so
// misconfiguration surfaces as a typed error instead of nonsensical
// clamped results at evaluation time.
func (p Policy) Validate() error {
	if p.MetricType == "" {
		return fmt.Errorf("%w: metric type must be set", ErrInvalidPolicy)
	}
	if p.TargetValue <= 0 {
		return fmt.Errorf("%w: target value must be positive, got %.2f", ErrInvalidPolicy, p.TargetValue)
	}
	if p.ScaleUpThreshold < 0 || p.ScaleDownThreshold < 0 {
		return fmt.Errorf("%w: thresholds must be non-negative", ErrInvalidPolicy)
	}
	if p.ScaleDownThreshold >= p.ScaleUpThreshold {
		return fmt.Errorf("%w: scale-down threshold %.2f must be below scale-up threshold %.2f",
			ErrInvalidPolicy, p.ScaleDownThreshold, p.ScaleUpThreshold)
	}
	if p.MinReplicas < 0 {
		return fmt.Errorf("%w: min replicas must be >= 0, got %d", ErrInvalidPolicy, p.MinReplicas)
	}
	if p.MinReplicas > p.MaxReplicas {
		return fmt.Errorf("%w: min replicas %d exceeds max replicas %d",
			ErrInvalidPolicy, p.MinReplicas, p.MaxReplicas)
	}
	if p.ScaleUpCooldown < 0 || p.ScaleDownCooldown < 0 {
		return fmt.Errorf("%w: cooldowns must be non-negative", ErrInvalidPolicy)
	}
	if p.AggregationWindow <= 0 {
		return fmt.Errorf("%w: aggregation window must be positive", ErrInvalidPolicy)
	}
	return nil
}

// clamp bounds a proposal to the policy's replica range.
func (p Policy) clamp(replicas int) int {
	if replicas < p.MinReplicas {
		return p.MinReplicas
	}
	if replicas > p.MaxReplicas {
		return p.MaxReplicas
	}
	return replicas
}
