package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Add(NewNode("b1", "h1", 1, 1)))
	assert.False(t, r.Add(NewNode("b1", "h2", 2, 1)))
	assert.Equal(t, 1, r.Len())

	// The first registration wins.
	assert.Equal(t, "h1", r.Get("b1").Host)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Add(NewNode("b1", "h", 1, 1))

	r.Remove("b1")
	assert.Nil(t, r.Get("b1"))
	assert.Equal(t, 0, r.Len())

	r.Remove("b1")
	assert.Equal(t, 0, r.Len())
}

func TestRegistryHealthyFilters(t *testing.T) {
	r := NewRegistry()
	r.Add(NewNode("b1", "h", 1, 1))
	r.Add(NewNode("b2", "h", 2, 1))
	r.Add(NewNode("b3", "h", 3, 1))
	r.Get("b2").Status = StatusUnhealthy

	healthy := r.Healthy()
	require.Len(t, healthy, 2)
	assert.Equal(t, "b1", healthy[0].Name)
	assert.Equal(t, "b3", healthy[1].Name)
}

func TestRegistrySortByLoad(t *testing.T) {
	r := NewRegistry()
	r.Add(NewNode("busy", "h", 1, 1))
	r.Add(NewNode("idle", "h", 2, 1))
	r.Add(NewNode("mid", "h", 3, 1))
	r.Get("busy").Connections = 20
	r.Get("mid").Connections = 5

	r.SortByLoad()

	all := r.All()
	assert.Equal(t, "idle", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "busy", all[2].Name)
}
