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

// Package autoscaler evaluates scaling policies against windowed
// metric averages and drives replica count changes through an external
// scaling driver, guarded by per-direction cooldowns.
package autoscaler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/clusterpilot/clusterpilot/internal/logging"
	"github.com/clusterpilot/clusterpilot/internal/metricstore"
)

// Fallback cooldowns used when no policy is registered. Scale-down is
// intentionally longer than scale-up: over-provisioning is cheaper
// than thrashing capacity down and up.
const (
	DefaultScaleUpCooldown   = 60 * time.Second
	DefaultScaleDownCooldown = 300 * time.Second
)

// Action classifies a scaling event.
type Action string

const (
	// ActionScaleUp records a replica increase.
	ActionScaleUp Action = "scale_up"
	// ActionScaleDown records a replica decrease.
	ActionScaleDown Action = "scale_down"
)

// Event is an append-only audit record of one scaling action. Events
// are used for observability and testing, never for control decisions.
type Event struct {
	Timestamp    time.Time
	Action       Action
	FromReplicas int
	ToReplicas   int
	Reason       string
	MetricValue  float64
}

// ScalingDriver is the contract to the external cluster orchestration
// platform. Implementations live in the actuator package; the
// autoscaler only needs the scale operation.
type ScalingDriver interface {
	// ScaleDeployment requests the deployment be resized to the given
	// replica count. A non-nil error means the request was not
	// accepted and no state may change.
	ScaleDeployment(ctx context.Context, deployment string, replicas int) error
}

// Observer receives scaling notifications for metric emission.
type Observer interface {
	// ReplicasScaled is called after each successful scaling action.
	ReplicasScaled(deployment string, replicas int, action Action)
}

// Config holds the autoscaler construction parameters.
type Config struct {
	// Deployment is the name of the scaled deployment.
	Deployment string

	// InitialReplicas seeds the replica count. Defaults to 1.
	InitialReplicas int

	// MetricCapacity bounds the metric history. Defaults to
	// metricstore.DefaultCapacity.
	MetricCapacity int

	// Driver performs the actual scaling. A nil driver turns every
	// scale attempt into a logged no-op.
	Driver ScalingDriver

	// Clock is injectable for tests. Defaults to the real clock.
	Clock clock.PassiveClock

	// Logger receives structured autoscaler events.
	Logger logr.Logger

	// Observer, if set, receives scaling notifications.
	Observer Observer
}

// AutoScaler owns a set of scaling policies and a bounded metric
// history, and transitions the replica count through successful
// scale calls. The cooldown check-then-act sequence runs under a
// single mutex, held across the driver call, so two overlapping
// evaluation ticks can never double-scale.
type AutoScaler struct {
	mu              sync.Mutex
	policies        []Policy
	events          []Event
	currentReplicas int
	lastScaleUp     time.Time
	lastScaleDown   time.Time

	deployment string
	store      *metricstore.Store
	driver     ScalingDriver
	clock      clock.PassiveClock
	observer   Observer
	log        logr.Logger
}

// New creates an autoscaler for the given configuration.
func New(cfg Config) *AutoScaler {
	if cfg.InitialReplicas <= 0 {
		cfg.InitialReplicas = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	return &AutoScaler{
		deployment:      cfg.Deployment,
		currentReplicas: cfg.InitialReplicas,
		store:           metricstore.NewStore(cfg.MetricCapacity, cfg.Clock),
		driver:          cfg.Driver,
		clock:           cfg.Clock,
		observer:        cfg.Observer,
		log:             cfg.Logger.WithName("autoscaler").WithValues("deployment", cfg.Deployment),
	}
}

// AddPolicy validates and registers a policy. Multiple policies may be
// active simultaneously; they are evaluated independently with the
// most conservative outcome per direction winning.
func (a *AutoScaler) AddPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.policies = append(a.policies, p)
	a.mu.Unlock()

	a.log.Info("Scaling policy added",
		"metric", p.MetricType,
		"target", p.TargetValue,
		"minReplicas", p.MinReplicas,
		"maxReplicas", p.MaxReplicas)
	return nil
}

// RecordMetric appends a sample to the bounded history.
func (a *AutoScaler) RecordMetric(mv metricstore.MetricValue) {
	a.store.Record(mv)
}

// AverageMetric returns the windowed average for a metric type; the
// second return value is false when no sample falls in the window.
func (a *AutoScaler) AverageMetric(t metricstore.MetricType, window time.Duration) (float64, bool) {
	return a.store.Average(t, window)
}

// proposal is the outcome of evaluating all policies.
type proposal struct {
	replicas    int
	metricType  metricstore.MetricType
	metricValue float64
	reason      string
}

// EvaluatePolicies computes the desired replica count from the
// registered policies. Policies without a usable windowed average are
// skipped; the second return value is false only when every policy was
// skipped.
func (a *AutoScaler) EvaluatePolicies() (int, bool) {
	p, ok := a.evaluate()
	if !ok {
		return 0, false
	}
	return p.replicas, true
}

func (a *AutoScaler) evaluate() (proposal, bool) {
	a.mu.Lock()
	policies := make([]Policy, len(a.policies))
	copy(policies, a.policies)
	current := a.currentReplicas
	a.mu.Unlock()

	var up, down *proposal
	evaluated := false

	for _, p := range policies {
		avg, ok := a.store.Average(p.MetricType, p.AggregationWindow)
		if !ok {
			a.log.V(logging.DEBUG).Info("No samples in window, skipping policy", "metric", p.MetricType)
			continue
		}
		evaluated = true

		var proposed int
		var reason string
		switch {
		case avg >= p.ScaleUpThreshold:
			proposed = p.clamp(int(float64(current) * avg / p.TargetValue))
			reason = fmt.Sprintf("%s average %.2f at or above scale-up threshold %.2f",
				p.MetricType, avg, p.ScaleUpThreshold)
		case avg <= p.ScaleDownThreshold:
			proposed = p.clamp(int(float64(current) * avg / p.TargetValue))
			reason = fmt.Sprintf("%s average %.2f at or below scale-down threshold %.2f",
				p.MetricType, avg, p.ScaleDownThreshold)
		default:
			// Every pass enforces the policy's replica bounds, so a
			// count left outside [min, max] by a policy change is
			// corrected even while the average sits between thresholds.
			proposed = p.clamp(current)
			reason = fmt.Sprintf("replicas clamped to policy bounds [%d, %d]",
				p.MinReplicas, p.MaxReplicas)
		}

		// The clamped value decides the direction: a proposal floored
		// at min replicas can land above current and becomes a
		// scale-up. Up takes the max across policies, down the min.
		switch {
		case proposed > current:
			if up == nil || proposed > up.replicas {
				up = &proposal{
					replicas:    proposed,
					metricType:  p.MetricType,
					metricValue: avg,
					reason:      reason,
				}
			}
		case proposed < current:
			if down == nil || proposed < down.replicas {
				down = &proposal{
					replicas:    proposed,
					metricType:  p.MetricType,
					metricValue: avg,
					reason:      reason,
				}
			}
		}
	}

	if !evaluated {
		return proposal{}, false
	}
	if up != nil {
		return *up, true
	}
	if down != nil {
		return *down, true
	}
	return proposal{replicas: current, reason: "within thresholds"}, true
}

// CheckAndScale evaluates policies and, if the desired count differs
// from the current one, attempts a scaling action. It reports whether
// an action was taken. With an empty metric history it is a no-op and
// never calls the driver.
func (a *AutoScaler) CheckAndScale(ctx context.Context) bool {
	p, ok := a.evaluate()
	if !ok {
		a.log.V(logging.DEBUG).Info("No policies yielded a usable average, skipping")
		return false
	}
	if p.replicas == a.CurrentReplicas() {
		return false
	}
	return a.scale(ctx, p.replicas, p.reason, p.metricValue)
}

// Scale requests a transition to the desired replica count, subject to
// the cooldown gates. It reports whether the action was taken.
func (a *AutoScaler) Scale(ctx context.Context, desired int, reason string) bool {
	return a.scale(ctx, desired, reason, 0)
}

func (a *AutoScaler) scale(ctx context.Context, desired int, reason string, metricValue float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if desired == a.currentReplicas {
		return false
	}

	now := a.clock.Now()
	var action Action
	if desired > a.currentReplicas {
		action = ActionScaleUp
		cooldown := a.scaleUpCooldownLocked()
		if !a.lastScaleUp.IsZero() && now.Sub(a.lastScaleUp) < cooldown {
			a.log.Info("Scale up in cooldown period, skipping",
				"desired", desired, "cooldown", cooldown)
			return false
		}
	} else {
		action = ActionScaleDown
		cooldown := a.scaleDownCooldownLocked()
		if !a.lastScaleDown.IsZero() && now.Sub(a.lastScaleDown) < cooldown {
			a.log.Info("Scale down in cooldown period, skipping",
				"desired", desired, "cooldown", cooldown)
			return false
		}
	}

	if a.driver == nil {
		a.log.Info("No scaling driver configured, skipping", "desired", desired)
		return false
	}

	// The lock is held across the driver call to preserve the
	// at-most-one-scaling-action-per-cooldown-window guarantee.
	if err := a.driver.ScaleDeployment(ctx, a.deployment, desired); err != nil {
		// Abandon the attempt: no state change, no event. The next
		// evaluation tick retries, rate-limited by the cooldown.
		a.log.Error(err, "Scaling request rejected", "desired", desired)
		return false
	}

	from := a.currentReplicas
	a.currentReplicas = desired
	if action == ActionScaleUp {
		a.lastScaleUp = now
	} else {
		a.lastScaleDown = now
	}
	a.events = append(a.events, Event{
		Timestamp:    now,
		Action:       action,
		FromReplicas: from,
		ToReplicas:   desired,
		Reason:       reason,
		MetricValue:  metricValue,
	})

	if a.observer != nil {
		a.observer.ReplicasScaled(a.deployment, desired, action)
	}
	a.log.Info("Scaled deployment", "action", action, "from", from, "to", desired, "reason", reason)
	return true
}

// scaleUpCooldownLocked returns the effective scale-up cooldown: the
// minimum across registered policies, or the default when none exist.
func (a *AutoScaler) scaleUpCooldownLocked() time.Duration {
	cooldown := DefaultScaleUpCooldown
	for i, p := range a.policies {
		if i == 0 || p.ScaleUpCooldown < cooldown {
			cooldown = p.ScaleUpCooldown
		}
	}
	return cooldown
}

func (a *AutoScaler) scaleDownCooldownLocked() time.Duration {
	cooldown := DefaultScaleDownCooldown
	for i, p := range a.policies {
		if i == 0 || p.ScaleDownCooldown < cooldown {
			cooldown = p.ScaleDownCooldown
		}
	}
	return cooldown
}

// CurrentReplicas returns the last successfully applied replica count.
func (a *AutoScaler) CurrentReplicas() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentReplicas
}

// ScalingHistory returns up to limit of the most recent scaling
// events, most-recent-last. A non-positive limit returns all events.
func (a *AutoScaler) ScalingHistory(limit int) []Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	events := a.events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Status is a read-only snapshot of autoscaler state.
type Status struct {
	Deployment      string
	CurrentReplicas int
	Policies        int
	ScalingEvents   int
	LastScaleUp     time.Time
	LastScaleDown   time.Time
	MetricsRecorded int
}

// Status returns a diagnostic snapshot.
func (a *AutoScaler) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Status{
		Deployment:      a.deployment,
		CurrentReplicas: a.currentReplicas,
		Policies:        len(a.policies),
		ScalingEvents:   len(a.events),
		LastScaleUp:     a.lastScaleUp,
		LastScaleDown:   a.lastScaleDown,
		MetricsRecorded: a.store.Len(),
	}
}
