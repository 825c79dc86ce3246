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

// Package balancer distributes client traffic across a pool of backend
// replicas. It selects a backend per request using a configurable
// strategy, tracks per-backend health and load, and runs periodic
// reachability probes.
package balancer

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/clusterpilot/clusterpilot/internal/backend"
	"github.com/clusterpilot/clusterpilot/internal/logging"
)

// Config holds the load balancer construction parameters.
type Config struct {
	// Strategy selects the backend selection algorithm.
	Strategy Strategy

	// ProbeTimeout bounds each health probe. Defaults to
	// DefaultProbeTimeout when zero.
	ProbeTimeout time.Duration

	// Prober overrides the reachability probe implementation.
	// Defaults to a TCP prober.
	Prober Prober

	// Logger receives structured balancer events.
	Logger logr.Logger

	// Observer, if set, receives selection and request outcome
	// notifications for metric emission.
	Observer Observer
}

// Observer receives balancer events for metric emission. Implemented
// by the actuator's Prometheus emitter; a nil observer disables it.
type Observer interface {
	// BackendSelected is called after each successful selection.
	BackendSelected(name string)

	// RequestRecorded is called after each recorded request outcome.
	RequestRecorded(name string, success bool)

	// HealthObserved is called after a probe sweep with the count of
	// healthy backends.
	HealthObserved(healthy int)
}

// LoadBalancer owns the backend registry and selects a backend per
// request. All methods are safe for concurrent use; the selection and
// recording paths hold the lock only briefly, and probe sweeps dial
// outside the lock so request dispatch never blocks on them.
type LoadBalancer struct {
	mu              sync.Mutex
	registry        *backend.Registry
	selector        Selector
	strategy        Strategy
	lastHealthCheck time.Time

	prober   Prober
	observer Observer
	log      logr.Logger
}

// New creates a load balancer for the given configuration.
func New(cfg Config) (*LoadBalancer, error) {
	selector, err := NewSelector(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	prober := cfg.Prober
	if prober == nil {
		prober = NewTCPProber(cfg.ProbeTimeout)
	}
	return &LoadBalancer{
		registry: backend.NewRegistry(),
		selector: selector,
		strategy: cfg.Strategy,
		prober:   prober,
		observer: cfg.Observer,
		log:      cfg.Logger.WithName("balancer"),
	}, nil
}

// AddBackend registers a new node with status healthy. It returns
// false if the name is already registered.
func (lb *LoadBalancer) AddBackend(name, host string, port, weight int) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if !lb.registry.Add(backend.NewNode(name, host, port, weight)) {
		lb.log.Info("Backend already registered, ignoring", "backend", name)
		return false
	}
	lb.log.Info("Backend added", "backend", name, "host", host, "port", port, "weight", weight)
	return true
}

// RemoveBackend removes the named node. It is idempotent and returns
// true whenever no matching entry remains afterwards.
func (lb *LoadBalancer) RemoveBackend(name string) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.registry.Remove(name)
	lb.log.Info("Backend removed", "backend", name)
	return true
}

// SelectBackend picks a healthy backend for the next request. The
// second return value is false when no healthy backend exists; callers
// must treat that as "no capacity", not an error, and apply their own
// fallback.
func (lb *LoadBalancer) SelectBackend(clientIP string) (backend.Node, bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	healthy := lb.registry.Healthy()
	if len(healthy) == 0 {
		lb.log.V(logging.DEBUG).Info("No healthy backends available")
		return backend.Node{}, false
	}

	node := lb.selector.Select(healthy, clientIP)
	lb.log.V(logging.TRACE).Info("Backend selected", "backend", node.Name)
	if lb.observer != nil {
		lb.observer.BackendSelected(node.Name)
	}
	return *node, true
}

// RecordRequest folds one completed request into the named backend's
// rolling statistics. Unknown names are logged and ignored so a
// late-arriving outcome for a removed backend never fails dispatch.
func (lb *LoadBalancer) RecordRequest(name string, responseTimeMs float64, success bool) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	node := lb.registry.Get(name)
	if node == nil {
		lb.log.V(logging.DEBUG).Info("Request recorded for unknown backend, ignoring", "backend", name)
		return
	}
	node.ObserveRequest(responseTimeMs, success)
	if lb.observer != nil {
		lb.observer.RequestRecorded(name, success)
	}
}

// UpdateConnections adjusts the in-flight connection count of the
// named backend by delta, flooring at zero. It returns false for
// unknown names.
func (lb *LoadBalancer) UpdateConnections(name string, delta int) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	node := lb.registry.Get(name)
	if node == nil {
		return false
	}
	node.Connections += delta
	if node.Connections < 0 {
		node.Connections = 0
	}
	return true
}

// UpdateBackendStatus manually overrides the named backend's status,
// for operator and test use. It returns false for unknown names.
func (lb *LoadBalancer) UpdateBackendStatus(name string, status backend.Status) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	node := lb.registry.Get(name)
	if node == nil {
		return false
	}
	node.Status = status
	lb.log.Info("Backend status updated", "backend", name, "status", status)
	return true
}

// HealthCheck probes every registered backend and updates statuses:
// reachable backends become healthy, timeouts degraded, refusals
// unhealthy. Probes run in parallel so the sweep completes in roughly
// one probe timeout regardless of pool size, and a failing probe never
// aborts the sweep. The returned map records the status per backend.
func (lb *LoadBalancer) HealthCheck(ctx context.Context) map[string]backend.Status {
	type target struct {
		name    string
		address string
	}

	lb.mu.Lock()
	targets := make([]target, 0, lb.registry.Len())
	for _, n := range lb.registry.All() {
		targets = append(targets, target{name: n.Name, address: n.Address()})
	}
	lb.mu.Unlock()

	statuses := make([]backend.Status, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()
			statuses[i] = statusForProbe(lb.prober.Probe(ctx, t.address))
		}(i, t)
	}
	wg.Wait()

	now := time.Now()
	results := make(map[string]backend.Status, len(targets))

	lb.mu.Lock()
	healthyCount := 0
	for i, t := range targets {
		results[t.name] = statuses[i]
		// The backend may have been removed while probes were in flight.
		if node := lb.registry.Get(t.name); node != nil {
			node.Status = statuses[i]
			node.LastChecked = now
		}
		if statuses[i] == backend.StatusHealthy {
			healthyCount++
		}
	}
	lb.lastHealthCheck = now
	lb.mu.Unlock()

	if lb.observer != nil {
		lb.observer.HealthObserved(healthyCount)
	}
	lb.log.Info("Health check completed", "backends", len(targets), "healthy", healthyCount)
	return results
}

// Rebalance sorts the registry ascending by load score as a hint for
// subsequent least-connections-style selection. It does not move
// in-flight connections.
func (lb *LoadBalancer) Rebalance() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.registry.SortByLoad()
	lb.log.Info("Load rebalancing completed")
	return true
}

// BackendStats is a read-only snapshot of one backend's state.
type BackendStats struct {
	Name           string
	Address        string
	Status         backend.Status
	Connections    int
	RequestsServed int64
	ResponseTimeMs float64
	ErrorRate      float64
	LoadScore      float64
}

// ClusterStats is a read-only snapshot of aggregate pool state. A
// fully degraded cluster is observable here rather than surfacing as
// an error on the request path.
type ClusterStats struct {
	TotalBackends         int
	HealthyBackends       int
	TotalConnections      int
	TotalRequests         int64
	AverageResponseTimeMs float64
	Strategy              Strategy
	LastHealthCheck       time.Time
}

// BackendStats returns per-backend snapshots in registry order.
func (lb *LoadBalancer) BackendStats() []BackendStats {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	stats := make([]BackendStats, 0, lb.registry.Len())
	for _, n := range lb.registry.All() {
		stats = append(stats, BackendStats{
			Name:           n.Name,
			Address:        n.Address(),
			Status:         n.Status,
			Connections:    n.Connections,
			RequestsServed: n.RequestsServed,
			ResponseTimeMs: n.ResponseTimeMs,
			ErrorRate:      n.ErrorRate,
			LoadScore:      n.LoadScore(),
		})
	}
	return stats
}

// ClusterStats returns an aggregate snapshot of the pool.
func (lb *LoadBalancer) ClusterStats() ClusterStats {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	stats := ClusterStats{
		TotalBackends:   lb.registry.Len(),
		Strategy:        lb.strategy,
		LastHealthCheck: lb.lastHealthCheck,
	}
	var totalResponseTime float64
	for _, n := range lb.registry.All() {
		if n.IsHealthy() {
			stats.HealthyBackends++
		}
		stats.TotalConnections += n.Connections
		stats.TotalRequests += n.RequestsServed
		totalResponseTime += n.ResponseTimeMs
	}
	if stats.TotalBackends > 0 {
		stats.AverageResponseTimeMs = totalResponseTime / float64(stats.TotalBackends)
	}
	return stats
}
