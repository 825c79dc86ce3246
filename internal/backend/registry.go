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

package backend

import (
	"sort"
)

// Registry is the ordered set of known backend nodes. Order is
// significant: the round-robin cursor walks it and Rebalance sorts it.
//
// Registry is not thread-safe. Concurrency control is handled by the
// containing load balancer.
type Registry struct {
	nodes []*Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a node. It returns false if a node with the same name
// is already registered.
func (r *Registry) Add(node *Node) bool {
	if r.Get(node.Name) != nil {
		return false
	}
	r.nodes = append(r.nodes, node)
	return true
}

// Remove deletes the node with the given name. Removing an absent name
// is a no-op.
func (r *Registry) Remove(name string) {
	kept := r.nodes[:0]
	for _, n := range r.nodes {
		if n.Name != name {
			kept = append(kept, n)
		}
	}
	r.nodes = kept
}

// Get returns the node with the given name, or nil.
func (r *Registry) Get(name string) *Node {
	for _, n := range r.nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// All returns the registered nodes in registry order. The returned
// slice is shared; callers must not modify it.
func (r *Registry) All() []*Node {
	return r.nodes
}

// Healthy returns the nodes currently eligible for selection, in
// registry order.
func (r *Registry) Healthy() []*Node {
	var healthy []*Node
	for _, n := range r.nodes {
		if n.IsHealthy() {
			healthy = append(healthy, n)
		}
	}
	return healthy
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// SortByLoad orders the registry ascending by load score, so the least
// loaded nodes come first for subsequent selection.
func (r *Registry) SortByLoad() {
	sort.SliceStable(r.nodes, func(i, j int) bool {
		return r.nodes[i].LoadScore() < r.nodes[j].LoadScore()
	})
}
