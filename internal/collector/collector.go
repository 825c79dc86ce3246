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

// Package collector provides pluggable metric collection for the
// autoscaler. Sources produce samples on each collection tick; the
// collector feeds them into the scaling sink and triggers a policy
// evaluation.
package collector

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/clusterpilot/clusterpilot/internal/metricstore"
)

// Source produces metric samples on each collection tick.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Collect returns the current samples. An empty slice is a valid
	// result when the source has nothing to report.
	Collect(ctx context.Context) []metricstore.MetricValue
}

// Sink consumes collected samples and evaluates scaling policies. The
// autoscaler satisfies this interface.
type Sink interface {
	RecordMetric(mv metricstore.MetricValue)
	CheckAndScale(ctx context.Context) bool
}

// Collector runs the periodic collection loop: every interval it
// gathers samples from all sources, records them into the sink, and
// triggers a scaling evaluation.
type Collector struct {
	sources  []Source
	sink     Sink
	interval time.Duration
	log      logr.Logger
}

// New creates a collector over the given sources.
func New(sink Sink, interval time.Duration, log logr.Logger, sources ...Source) *Collector {
	return &Collector{
		sources:  sources,
		sink:     sink,
		interval: interval,
		log:      log.WithName("collector"),
	}
}

// Run collects on every tick until the context is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CollectOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CollectOnce performs a single collection pass and scaling
// evaluation. It reports whether a scaling action was taken.
func (c *Collector) CollectOnce(ctx context.Context) bool {
	for _, src := range c.sources {
		for _, mv := range src.Collect(ctx) {
			c.sink.RecordMetric(mv)
		}
	}
	return c.sink.CheckAndScale(ctx)
}

// PoolStats is the subset of load balancer state the pool source
// samples.
type PoolStats struct {
	TotalConnections int
	TotalRequests    int64
}

// StatsFunc returns a point-in-time snapshot of pool statistics.
type StatsFunc func() PoolStats

// PoolSource samples the backend pool: in-flight connections as a
// gauge and the request rate as a delta over the elapsed interval.
type PoolSource struct {
	stats        StatsFunc
	clock        clock.PassiveClock
	lastRequests int64
	lastSample   time.Time
}

// NewPoolSource creates a pool source over a stats snapshot function.
// A nil clk uses the real clock.
func NewPoolSource(stats StatsFunc, clk clock.PassiveClock) *PoolSource {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &PoolSource{
		stats:      stats,
		clock:      clk,
		lastSample: clk.Now(),
	}
}

// Name implements Source.
func (s *PoolSource) Name() string { return "pool" }

// Collect implements Source.
func (s *PoolSource) Collect(_ context.Context) []metricstore.MetricValue {
	stats := s.stats()
	now := s.clock.Now()
	elapsed := now.Sub(s.lastSample).Seconds()

	samples := []metricstore.MetricValue{{
		Type:      metricstore.MetricConnections,
		Value:     float64(stats.TotalConnections),
		Timestamp: now,
		Unit:      "connections",
	}}
	// When no time has passed the rate sample is skipped and the
	// request baseline is left alone, so those requests count toward
	// the next interval instead of disappearing.
	if elapsed > 0 {
		samples = append(samples, metricstore.MetricValue{
			Type:      metricstore.MetricRequestRate,
			Value:     float64(stats.TotalRequests-s.lastRequests) / elapsed,
			Timestamp: now,
			Unit:      "req/s",
		})
		s.lastRequests = stats.TotalRequests
		s.lastSample = now
	}
	return samples
}
