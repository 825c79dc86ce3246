package balancer

import (
	"fmt"
	"hash/crc32"
	"math/rand"
	"time"

	"github.com/clusterpilot/clusterpilot/internal/backend"
)

// Strategy is an enumeration of the available backend selection strategies.
type Strategy string

const (
	// StrategyRoundRobin rotates through healthy backends with a
	// persistent cursor.
	StrategyRoundRobin Strategy = "round-robin"

	// StrategyLeastConnections routes to the backend with the fewest
	// in-flight connections.
	StrategyLeastConnections Strategy = "least-connections"

	// StrategyWeighted picks backends with probability proportional to
	// their weight.
	StrategyWeighted Strategy = "weighted"

	// StrategyRandom picks uniformly among healthy backends.
	StrategyRandom Strategy = "random"

	// StrategyIPHash gives each client IP a sticky backend assignment.
	StrategyIPHash Strategy = "ip-hash"
)

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyRoundRobin, StrategyLeastConnections, StrategyWeighted,
		StrategyRandom, StrategyIPHash:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown balancing strategy %q", s)
	}
}

// Selector picks one backend from the current healthy set. Selectors
// may keep state across calls (round-robin cursor, sticky sessions);
// that state is guarded by the owning LoadBalancer's lock.
type Selector interface {
	// Select returns one of the given healthy nodes. The slice is
	// never empty; clientIP may be.
	Select(healthy []*backend.Node, clientIP string) *backend.Node
}

// NewSelector is a factory that creates a Selector for the given strategy.
func NewSelector(strategy Strategy) (Selector, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	switch strategy {
	case StrategyRoundRobin:
		return &roundRobinSelector{}, nil
	case StrategyLeastConnections:
		return &leastConnectionsSelector{}, nil
	case StrategyWeighted:
		return &weightedSelector{rng: rng}, nil
	case StrategyRandom:
		return &randomSelector{rng: rng}, nil
	case StrategyIPHash:
		return &ipHashSelector{
			affinity: make(map[string]string),
			fallback: &randomSelector{rng: rng},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported balancing strategy: %v", strategy)
	}
}

// roundRobinSelector keeps a monotonically incrementing cursor. The
// cursor is not reset when the healthy set changes size, so the
// distribution skews briefly after topology changes. That skew is
// bounded and accepted.
type roundRobinSelector struct {
	cursor int
}

func (s *roundRobinSelector) Select(healthy []*backend.Node, _ string) *backend.Node {
	node := healthy[s.cursor%len(healthy)]
	s.cursor++
	return node
}

type leastConnectionsSelector struct{}

func (s *leastConnectionsSelector) Select(healthy []*backend.Node, _ string) *backend.Node {
	best := healthy[0]
	for _, n := range healthy[1:] {
		if n.Connections < best.Connections {
			best = n
		}
	}
	return best
}

// weightedSelector expands each node to Weight entries and picks
// uniformly from the expanded list, giving expected selection
// frequency proportional to weight.
type weightedSelector struct {
	rng *rand.Rand
}

func (s *weightedSelector) Select(healthy []*backend.Node, _ string) *backend.Node {
	var expanded []*backend.Node
	for _, n := range healthy {
		for i := 0; i < n.Weight; i++ {
			expanded = append(expanded, n)
		}
	}
	return expanded[s.rng.Intn(len(expanded))]
}

type randomSelector struct {
	rng *rand.Rand
}

func (s *randomSelector) Select(healthy []*backend.Node, _ string) *backend.Node {
	return healthy[s.rng.Intn(len(healthy))]
}

// ipHashSelector hashes the client IP onto the healthy set and caches
// the assignment, so the same client keeps hitting the same backend.
// A cached assignment is only re-resolved when the mapped backend is
// absent from the current healthy set.
type ipHashSelector struct {
	affinity map[string]string
	fallback Selector
}

func (s *ipHashSelector) Select(healthy []*backend.Node, clientIP string) *backend.Node {
	if clientIP == "" {
		return s.fallback.Select(healthy, clientIP)
	}

	if name, ok := s.affinity[clientIP]; ok {
		for _, n := range healthy {
			if n.Name == name {
				return n
			}
		}
		// Mapped backend left the healthy set; fall through to a
		// fresh hash assignment.
	}

	idx := int(crc32.ChecksumIEEE([]byte(clientIP))) % len(healthy)
	if idx < 0 {
		idx += len(healthy)
	}
	node := healthy[idx]
	s.affinity[clientIP] = node.Name
	return node
}
