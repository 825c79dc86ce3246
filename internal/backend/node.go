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

// Package backend holds the backend replica model shared by the load
// balancer: node identity, health status, and rolling load statistics.
package backend

import (
	"fmt"
	"time"
)

// Status represents the health state of a backend node.
type Status string

const (
	// StatusHealthy indicates the node is reachable and eligible for selection.
	StatusHealthy Status = "healthy"

	// StatusDegraded indicates the node answered slowly (probe timed out).
	// Degraded nodes are excluded from selection until they recover.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy indicates the node refused or failed the probe.
	StatusUnhealthy Status = "unhealthy"
)

// ParseStatus validates a status string from an operator override.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusHealthy, StatusDegraded, StatusUnhealthy:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown backend status %q", s)
	}
}

// Load score weights. Error rate dominates because a fast-but-failing
// backend is worse than a slow-but-correct one.
const (
	connectionsWeight  = 0.7
	responseTimeWeight = 0.2
	errorRateWeight    = 10.0
)

// Smoothing constants for rolling request statistics.
const (
	// responseTimeSmoothing is the weight given to history in the
	// response time moving average; the new sample gets the remainder.
	responseTimeSmoothing = 0.7

	// Error rate moves up fast on failures and decays slowly on
	// successes so recovery is gradual and flapping is avoided.
	errorRateIncreaseStep = 0.01
	errorRateDecayStep    = 0.001
)

// Node is one backend replica receiving load-balanced traffic.
//
// Node is not thread-safe. Concurrency control is handled by the
// containing load balancer, which owns all nodes in its registry.
type Node struct {
	// Name uniquely identifies the node within a registry.
	Name string

	// Host and Port locate the node on the network.
	Host string
	Port int

	// Weight biases the weighted selection strategy. Always >= 1.
	Weight int

	// Status is the current health state.
	Status Status

	// Connections is the current in-flight request count.
	Connections int

	// RequestsServed counts completed requests. Monotonic.
	RequestsServed int64

	// ResponseTimeMs is the exponentially smoothed request latency.
	ResponseTimeMs float64

	// ErrorRate is the smoothed failure fraction in [0, 1].
	ErrorRate float64

	// LastChecked is when the node was last health-probed.
	LastChecked time.Time
}

// NewNode creates a node in the healthy state. Weights below 1 are
// raised to 1.
func NewNode(name, host string, port, weight int) *Node {
	if weight < 1 {
		weight = 1
	}
	return &Node{
		Name:   name,
		Host:   host,
		Port:   port,
		Weight: weight,
		Status: StatusHealthy,
	}
}

// Address returns the host:port dial address of the node.
func (n *Node) Address() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// IsHealthy reports whether the node is eligible for selection.
func (n *Node) IsHealthy() bool {
	return n.Status == StatusHealthy
}

// LoadScore returns a single comparable figure of merit for the node.
// Higher means more loaded.
func (n *Node) LoadScore() float64 {
	return connectionsWeight*float64(n.Connections) +
		responseTimeWeight*n.ResponseTimeMs +
		errorRateWeight*n.ErrorRate
}

// ObserveRequest folds one completed request into the node's rolling
// statistics: the latency moving average and the asymmetric error rate.
func (n *Node) ObserveRequest(responseTimeMs float64, success bool) {
	n.RequestsServed++
	n.ResponseTimeMs = responseTimeSmoothing*n.ResponseTimeMs +
		(1-responseTimeSmoothing)*responseTimeMs

	if success {
		n.ErrorRate = max(n.ErrorRate-errorRateDecayStep, 0.0)
	} else {
		n.ErrorRate = min(n.ErrorRate+errorRateIncreaseStep, 1.0)
	}
}
