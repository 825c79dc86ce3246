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

package actuator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clusterpilot/clusterpilot/internal/autoscaler"
)

// Emitter exposes balancer and autoscaler activity as Prometheus
// metrics. It implements balancer.Observer and autoscaler.Observer.
type Emitter struct {
	desiredReplicas *prometheus.GaugeVec
	scalingActions  *prometheus.CounterVec
	selections      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	healthyBackends prometheus.Gauge
}

// NewEmitter registers the clusterpilot metrics with the given
// registerer and returns the emitter.
func NewEmitter(reg prometheus.Registerer) *Emitter {
	factory := promauto.With(reg)
	return &Emitter{
		desiredReplicas: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clusterpilot_desired_replicas",
			Help: "Replica count last applied by the autoscaler, per deployment.",
		}, []string{"deployment"}),
		scalingActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterpilot_scaling_actions_total",
			Help: "Successful scaling actions, by deployment and direction.",
		}, []string{"deployment", "action"}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterpilot_backend_selections_total",
			Help: "Backend selections, per backend.",
		}, []string{"backend"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterpilot_backend_requests_total",
			Help: "Recorded request outcomes, per backend and outcome.",
		}, []string{"backend", "outcome"}),
		healthyBackends: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clusterpilot_healthy_backends",
			Help: "Healthy backends observed by the last probe sweep.",
		}),
	}
}

// BackendSelected implements balancer.Observer.
func (e *Emitter) BackendSelected(name string) {
	e.selections.WithLabelValues(name).Inc()
}

// RequestRecorded implements balancer.Observer.
func (e *Emitter) RequestRecorded(name string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	e.requests.WithLabelValues(name, outcome).Inc()
}

// HealthObserved implements balancer.Observer.
func (e *Emitter) HealthObserved(healthy int) {
	e.healthyBackends.Set(float64(healthy))
}

// ReplicasScaled implements autoscaler.Observer.
func (e *Emitter) ReplicasScaled(deployment string, replicas int, action autoscaler.Action) {
	e.desiredReplicas.WithLabelValues(deployment).Set(float64(replicas))
	e.scalingActions.WithLabelValues(deployment, string(action)).Inc()
}
