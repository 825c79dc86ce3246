package metricstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testingclock "k8s.io/utils/clock/testing"
)

func sample(t MetricType, value float64, at time.Time) MetricValue {
	return MetricValue{Type: t, Value: value, Timestamp: at, Unit: "%"}
}

func TestStoreAverageInWindow(t *testing.T) {
	now := time.Now()
	clk := testingclock.NewFakePassiveClock(now)
	s := NewStore(0, clk)

	s.Record(sample(MetricCPU, 80, now.Add(-30*time.Second)))
	s.Record(sample(MetricCPU, 90, now.Add(-20*time.Second)))
	s.Record(sample(MetricCPU, 100, now.Add(-10*time.Second)))

	avg, ok := s.Average(MetricCPU, time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, 90.0, avg, 1e-9)
}

func TestStoreAverageExcludesOldSamples(t *testing.T) {
	now := time.Now()
	clk := testingclock.NewFakePassiveClock(now)
	s := NewStore(0, clk)

	s.Record(sample(MetricCPU, 10, now.Add(-10*time.Minute)))
	s.Record(sample(MetricCPU, 50, now.Add(-5*time.Second)))

	avg, ok := s.Average(MetricCPU, time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, avg, 1e-9)
}

func TestStoreAverageFiltersByType(t *testing.T) {
	now := time.Now()
	clk := testingclock.NewFakePassiveClock(now)
	s := NewStore(0, clk)

	s.Record(sample(MetricCPU, 90, now))
	s.Record(sample(MetricMemory, 10, now))

	avg, ok := s.Average(MetricCPU, time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, 90.0, avg, 1e-9)
}

func TestStoreAverageEmptyWindow(t *testing.T) {
	clk := testingclock.NewFakePassiveClock(time.Now())
	s := NewStore(0, clk)

	_, ok := s.Average(MetricCPU, time.Minute)
	assert.False(t, ok, "no samples in window is an expected non-error condition")
}

func TestStoreEvictsOldestPastCapacity(t *testing.T) {
	now := time.Now()
	clk := testingclock.NewFakePassiveClock(now)
	s := NewStore(3, clk)

	for i := 0; i < 5; i++ {
		s.Record(sample(MetricCPU, float64(i), now))
	}

	assert.Equal(t, 3, s.Len())

	// Only the newest three samples (2, 3, 4) remain.
	avg, ok := s.Average(MetricCPU, time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, 3.0, avg, 1e-9)
}

func TestStoreDefaultCapacity(t *testing.T) {
	now := time.Now()
	clk := testingclock.NewFakePassiveClock(now)
	s := NewStore(0, clk)

	for i := 0; i < DefaultCapacity+20; i++ {
		s.Record(sample(MetricCPU, 1, now))
	}
	assert.Equal(t, DefaultCapacity, s.Len())
}
