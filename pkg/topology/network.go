// Copyright 2026 Meridian Networks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package topology

// Network is an immutable snapshot of the network state at one version.
// The runtime creates a fresh Network whenever the topology changes and
// hands it to the policy tree; policy nodes compare snapshots by reference
// to decide whether anything changed.
type Network struct {
	topo   *Topology
	egress LocationSet
	tree   *SpanningTree
}

// NewNetwork snapshots the given topology. The derived egress set and
// spanning forest are computed once, here; the topology must not be
// modified afterwards.
func NewNetwork(topo *Topology) *Network {
	return &Network{
		topo:   topo,
		egress: topo.EgressLocations(),
		tree:   topo.MinimumSpanningTree(),
	}
}

// EgressLocations returns the boundary locations of the snapshot.
func (n *Network) EgressLocations() LocationSet {
	return n.egress
}

// SpanningTree returns the spanning forest of the snapshot.
func (n *Network) SpanningTree() *SpanningTree {
	return n.tree
}

// Topology returns the underlying topology graph.
func (n *Network) Topology() *Topology {
	return n.topo
}
