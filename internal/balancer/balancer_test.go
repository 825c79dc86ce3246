package balancer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterpilot/clusterpilot/internal/backend"
	"github.com/clusterpilot/clusterpilot/internal/logging"
)

func newTestBalancer(t *testing.T, strategy Strategy) *LoadBalancer {
	t.Helper()
	lb, err := New(Config{Strategy: strategy, Logger: logging.NewTestLogger()})
	require.NoError(t, err)
	return lb
}

func TestAddBackendRejectsDuplicateName(t *testing.T) {
	lb := newTestBalancer(t, StrategyRoundRobin)

	assert.True(t, lb.AddBackend("b1", "10.0.0.1", 8001, 1))
	assert.False(t, lb.AddBackend("b1", "10.0.0.2", 8002, 1))
	assert.Equal(t, 1, lb.ClusterStats().TotalBackends)
}

func TestRemoveBackendIsIdempotent(t *testing.T) {
	lb := newTestBalancer(t, StrategyRoundRobin)
	lb.AddBackend("b1", "10.0.0.1", 8001, 1)

	assert.True(t, lb.RemoveBackend("b1"))
	assert.True(t, lb.RemoveBackend("b1"))
	assert.Equal(t, 0, lb.ClusterStats().TotalBackends)
}

func TestSelectBackendNoCapacity(t *testing.T) {
	lb := newTestBalancer(t, StrategyRoundRobin)

	_, ok := lb.SelectBackend("")
	assert.False(t, ok, "empty pool must signal no capacity")

	lb.AddBackend("b1", "10.0.0.1", 8001, 1)
	lb.UpdateBackendStatus("b1", backend.StatusUnhealthy)

	_, ok = lb.SelectBackend("")
	assert.False(t, ok, "pool with no healthy backend must signal no capacity")
}

func TestSelectBackendSkipsUnhealthy(t *testing.T) {
	lb := newTestBalancer(t, StrategyRoundRobin)
	lb.AddBackend("b1", "10.0.0.1", 8001, 1)
	lb.AddBackend("b2", "10.0.0.1", 8002, 1)
	lb.UpdateBackendStatus("b1", backend.StatusDegraded)

	for i := 0; i < 10; i++ {
		node, ok := lb.SelectBackend("")
		require.True(t, ok)
		assert.Equal(t, "b2", node.Name)
		assert.Equal(t, backend.StatusHealthy, node.Status)
	}
}

func TestRecordRequestUpdatesStatistics(t *testing.T) {
	lb := newTestBalancer(t, StrategyRoundRobin)
	lb.AddBackend("b1", "10.0.0.1", 8001, 1)

	lb.RecordRequest("b1", 100, true)
	lb.RecordRequest("b1", 200, false)

	stats := lb.BackendStats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].RequestsServed)
	// 0.7*(0.7*0 + 0.3*100) + 0.3*200
	assert.InDelta(t, 81.0, stats[0].ResponseTimeMs, 1e-9)
	assert.InDelta(t, 0.01, stats[0].ErrorRate, 1e-9)
}

func TestRecordRequestUnknownBackendIsIgnored(t *testing.T) {
	lb := newTestBalancer(t, StrategyRoundRobin)
	lb.RecordRequest("ghost", 10, true) // must not panic
}

func TestUpdateConnections(t *testing.T) {
	lb := newTestBalancer(t, StrategyLeastConnections)
	lb.AddBackend("b1", "10.0.0.1", 8001, 1)

	assert.True(t, lb.UpdateConnections("b1", 3))
	assert.Equal(t, 3, lb.BackendStats()[0].Connections)

	assert.True(t, lb.UpdateConnections("b1", -5))
	assert.Equal(t, 0, lb.BackendStats()[0].Connections, "connections floor at zero")

	assert.False(t, lb.UpdateConnections("ghost", 1))
}

func TestHealthIsolation(t *testing.T) {
	lb := newTestBalancer(t, StrategyRandom)
	for _, name := range []string{"b1", "b2", "b3"} {
		lb.AddBackend(name, "10.0.0.1", 8001, 1)
	}

	before := lb.ClusterStats().HealthyBackends
	lb.UpdateBackendStatus("b2", backend.StatusUnhealthy)
	after := lb.ClusterStats().HealthyBackends

	assert.Equal(t, before-1, after)
	for i := 0; i < 50; i++ {
		node, ok := lb.SelectBackend("")
		require.True(t, ok)
		assert.NotEqual(t, "b2", node.Name)
	}
}

func TestClusterStatsAggregates(t *testing.T) {
	lb := newTestBalancer(t, StrategyLeastConnections)
	lb.AddBackend("b1", "10.0.0.1", 8001, 1)
	lb.AddBackend("b2", "10.0.0.1", 8002, 1)
	lb.UpdateConnections("b1", 4)
	lb.UpdateConnections("b2", 2)
	lb.RecordRequest("b1", 100, true)
	lb.RecordRequest("b2", 200, true)

	got := lb.ClusterStats()
	want := ClusterStats{
		TotalBackends:         2,
		HealthyBackends:       2,
		TotalConnections:      6,
		TotalRequests:         2,
		AverageResponseTimeMs: (30.0 + 60.0) / 2,
		Strategy:              StrategyLeastConnections,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cluster stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRebalanceOrdersByLoadScore(t *testing.T) {
	lb := newTestBalancer(t, StrategyLeastConnections)
	lb.AddBackend("busy", "10.0.0.1", 8001, 1)
	lb.AddBackend("idle", "10.0.0.1", 8002, 1)
	lb.UpdateConnections("busy", 10)

	assert.True(t, lb.Rebalance())

	stats := lb.BackendStats()
	assert.Equal(t, "idle", stats[0].Name)
	assert.Equal(t, "busy", stats[1].Name)
}
