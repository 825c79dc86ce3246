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

package metricstore

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultCapacity is the sample cap per store. Oldest samples are
// evicted past it, regardless of metric type; callers needing longer
// independent windows per type should use separate stores.
const DefaultCapacity = 100

// Store is a fixed-capacity ring of metric samples. It is safe for
// concurrent use: the metrics pipeline appends while the scaling loop
// reads windowed averages, and a windowed scan observes a consistent
// snapshot even as the cap evicts entries.
type Store struct {
	mu sync.RWMutex

	samples []MetricValue
	head    int
	count   int

	clock clock.PassiveClock
}

// NewStore creates a store holding at most capacity samples. A
// non-positive capacity falls back to DefaultCapacity. The clock is
// injectable for tests; pass clock.RealClock{} in production.
func NewStore(capacity int, clk clock.PassiveClock) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Store{
		samples: make([]MetricValue, capacity),
		clock:   clk,
	}
}

// Record appends a sample, evicting the oldest when the ring is full.
func (s *Store) Record(mv MetricValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := (s.head + s.count) % len(s.samples)
	s.samples[idx] = mv
	if s.count < len(s.samples) {
		s.count++
	} else {
		s.head = (s.head + 1) % len(s.samples)
	}
}

// Len returns the number of retained samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Average returns the arithmetic mean of all samples of the given type
// whose timestamp falls within the trailing window. The second return
// value is false when no sample falls in the window; that is an
// expected condition, not an error.
func (s *Store) Average(metricType MetricType, window time.Duration) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.clock.Now().Add(-window)
	var sum float64
	var n int
	for i := 0; i < s.count; i++ {
		mv := s.samples[(s.head+i)%len(s.samples)]
		if mv.Type != metricType || mv.Timestamp.Before(cutoff) {
			continue
		}
		sum += mv.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
