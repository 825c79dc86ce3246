package balancer

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clusterpilot/clusterpilot/internal/backend"
)

func makeNodes(names ...string) []*backend.Node {
	nodes := make([]*backend.Node, len(names))
	for i, name := range names {
		nodes[i] = backend.NewNode(name, "10.0.0.1", 8000+i, 1)
	}
	return nodes
}

var _ = Describe("ParseStrategy", func() {
	It("accepts all five strategies", func() {
		for _, name := range []string{
			"round-robin", "least-connections", "weighted", "random", "ip-hash",
		} {
			s, err := ParseStrategy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(s)).To(Equal(name))
		}
	})

	It("rejects unknown names", func() {
		_, err := ParseStrategy("power-of-two")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("round-robin selector", func() {
	It("distributes selections evenly", func() {
		sel, err := NewSelector(StrategyRoundRobin)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2", "b3")
		counts := map[string]int{}
		for i := 0; i < 300; i++ {
			counts[sel.Select(nodes, "").Name]++
		}
		Expect(counts["b1"]).To(Equal(100))
		Expect(counts["b2"]).To(Equal(100))
		Expect(counts["b3"]).To(Equal(100))
	})

	It("keeps its cursor across topology changes", func() {
		sel, err := NewSelector(StrategyRoundRobin)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2", "b3")
		Expect(sel.Select(nodes, "").Name).To(Equal("b1"))
		Expect(sel.Select(nodes, "").Name).To(Equal("b2"))

		// Shrinking the set does not reset the cursor; the skew is
		// brief and bounded.
		shrunk := nodes[:2]
		Expect(sel.Select(shrunk, "").Name).To(Equal("b1"))
		Expect(sel.Select(shrunk, "").Name).To(Equal("b2"))
	})
})

var _ = Describe("least-connections selector", func() {
	It("always returns the backend with minimum connections", func() {
		sel, err := NewSelector(StrategyLeastConnections)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2", "b3")
		nodes[0].Connections = 5
		nodes[1].Connections = 1
		nodes[2].Connections = 3

		for i := 0; i < 10; i++ {
			Expect(sel.Select(nodes, "").Name).To(Equal("b2"))
		}
	})

	It("prefers the earliest node on ties", func() {
		sel, err := NewSelector(StrategyLeastConnections)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2")
		Expect(sel.Select(nodes, "").Name).To(Equal("b1"))
	})
})

var _ = Describe("weighted selector", func() {
	It("selects proportionally to weight", func() {
		sel, err := NewSelector(StrategyWeighted)
		Expect(err).NotTo(HaveOccurred())

		heavy := backend.NewNode("heavy", "h", 1, 9)
		light := backend.NewNode("light", "h", 2, 1)
		nodes := []*backend.Node{heavy, light}

		counts := map[string]int{}
		const trials = 5000
		for i := 0; i < trials; i++ {
			counts[sel.Select(nodes, "").Name]++
		}
		// Expected 90/10 split; allow generous slack for randomness.
		Expect(counts["heavy"]).To(BeNumerically(">", trials*7/10))
		Expect(counts["light"]).To(BeNumerically(">", 0))
	})
})

var _ = Describe("random selector", func() {
	It("eventually selects every backend", func() {
		sel, err := NewSelector(StrategyRandom)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2", "b3")
		counts := map[string]int{}
		for i := 0; i < 1000; i++ {
			counts[sel.Select(nodes, "").Name]++
		}
		Expect(counts).To(HaveLen(3))
	})
})

var _ = Describe("ip-hash selector", func() {
	It("is sticky for a fixed client IP", func() {
		sel, err := NewSelector(StrategyIPHash)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2", "b3")
		first := sel.Select(nodes, "192.168.1.100").Name
		for i := 0; i < 20; i++ {
			Expect(sel.Select(nodes, "192.168.1.100").Name).To(Equal(first))
		}
	})

	It("re-resolves when the mapped backend leaves the healthy set", func() {
		sel, err := NewSelector(StrategyIPHash)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2", "b3")
		first := sel.Select(nodes, "10.1.2.3").Name

		var remaining []*backend.Node
		for _, n := range nodes {
			if n.Name != first {
				remaining = append(remaining, n)
			}
		}

		second := sel.Select(remaining, "10.1.2.3").Name
		Expect(second).NotTo(Equal(first))

		// The fresh assignment is cached in turn.
		Expect(sel.Select(remaining, "10.1.2.3").Name).To(Equal(second))
	})

	It("falls back to a random pick without a client IP", func() {
		sel, err := NewSelector(StrategyIPHash)
		Expect(err).NotTo(HaveOccurred())

		nodes := makeNodes("b1", "b2")
		Expect(sel.Select(nodes, "")).NotTo(BeNil())
	})
})
