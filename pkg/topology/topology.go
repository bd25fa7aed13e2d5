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

// Package topology models the switch-level network graph the controller
// manages: switches with numbered ports, inter-switch links, the boundary
// (egress) locations and the spanning forest used for loop-free flooding.
package topology

import (
	"fmt"
	"sort"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// Location is a (switch, port) pair.
type Location struct {
	Switch int
	Port   int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Switch, l.Port)
}

// LocationSet is a set of locations.
type LocationSet map[Location]struct{}

// Contains reports set membership.
func (s LocationSet) Contains(l Location) bool {
	_, ok := s[l]
	return ok
}

// Equal reports whether both sets hold the same locations.
func (s LocationSet) Equal(o LocationSet) bool {
	if len(s) != len(o) {
		return false
	}
	for l := range s {
		if !o.Contains(l) {
			return false
		}
	}
	return true
}

// Sorted returns the locations in deterministic order.
func (s LocationSet) Sorted() []Location {
	out := make([]Location, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Switch != out[j].Switch {
			return out[i].Switch < out[j].Switch
		}
		return out[i].Port < out[j].Port
	})
	return out
}

// Topology is a mutable switch graph. It is built once by the discovery
// layer and must not be modified after a Network snapshot has been taken
// from it.
type Topology struct {
	// ports maps a switch to its declared port numbers.
	ports map[int]map[int]struct{}
	// adj maps a switch to its neighbors, with the local port towards each
	// neighbor.
	adj map[int]map[int]int
}

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{
		ports: make(map[int]map[int]struct{}),
		adj:   make(map[int]map[int]int),
	}
}

// AddSwitch declares a switch and its ports. Declaring an existing switch
// adds the ports to the existing set.
func (t *Topology) AddSwitch(sw int, ports ...int) {
	if t.ports[sw] == nil {
		t.ports[sw] = make(map[int]struct{})
		t.adj[sw] = make(map[int]int)
	}
	for _, p := range ports {
		t.ports[sw][p] = struct{}{}
	}
}

// AddLink connects port aPort on switch a with port bPort on switch b.
// Both endpoints are declared implicitly.
func (t *Topology) AddLink(a, aPort, b, bPort int) error {
	if a == b {
		return serrors.New("self link", "switch", a)
	}
	t.AddSwitch(a, aPort)
	t.AddSwitch(b, bPort)
	t.adj[a][b] = aPort
	t.adj[b][a] = bPort
	return nil
}

// Switches returns the sorted switch ids.
func (t *Topology) Switches() []int {
	out := make([]int, 0, len(t.ports))
	for sw := range t.ports {
		out = append(out, sw)
	}
	sort.Ints(out)
	return out
}

// EgressLocations returns the boundary locations of the topology: every
// declared (switch, port) that is not an endpoint of an inter-switch link.
func (t *Topology) EgressLocations() LocationSet {
	internal := make(map[Location]struct{})
	for sw, neighbors := range t.adj {
		for _, port := range neighbors {
			internal[Location{Switch: sw, Port: port}] = struct{}{}
		}
	}
	out := make(LocationSet)
	for sw, ports := range t.ports {
		for port := range ports {
			loc := Location{Switch: sw, Port: port}
			if _, ok := internal[loc]; !ok {
				out[loc] = struct{}{}
			}
		}
	}
	return out
}

// SpanningTree is a spanning forest over the topology graph. For each tree
// edge the port numbers on both endpoints are retained.
type SpanningTree struct {
	// neighbors maps a switch to its tree neighbors, with the local port
	// towards each neighbor.
	neighbors map[int]map[int]int
}

// MinimumSpanningTree computes a deterministic spanning forest of the
// topology. Links are unweighted; a breadth-first traversal in sorted
// switch order picks the tree edges. Switches without links form singleton
// trees.
func (t *Topology) MinimumSpanningTree() *SpanningTree {
	st := &SpanningTree{neighbors: make(map[int]map[int]int)}
	visited := make(map[int]bool)
	for _, root := range t.Switches() {
		if visited[root] {
			continue
		}
		visited[root] = true
		st.neighbors[root] = make(map[int]int)
		queue := []int{root}
		for len(queue) > 0 {
			sw := queue[0]
			queue = queue[1:]
			for _, next := range sortedKeys(t.adj[sw]) {
				if visited[next] {
					continue
				}
				visited[next] = true
				st.neighbors[next] = make(map[int]int)
				st.neighbors[sw][next] = t.adj[sw][next]
				st.neighbors[next][sw] = t.adj[next][sw]
				queue = append(queue, next)
			}
		}
	}
	return st
}

// HasSwitch reports whether the switch is part of the forest.
func (s *SpanningTree) HasSwitch(sw int) bool {
	_, ok := s.neighbors[sw]
	return ok
}

// Neighbors returns the sorted tree neighbors of the switch.
func (s *SpanningTree) Neighbors(sw int) []int {
	return sortedKeys(s.neighbors[sw])
}

// EdgePort returns the port on sw of the tree edge towards the neighbor.
func (s *SpanningTree) EdgePort(sw, neighbor int) (int, bool) {
	port, ok := s.neighbors[sw][neighbor]
	return port, ok
}

// Equal reports whether both forests have the same switches, edges and
// edge ports.
func (s *SpanningTree) Equal(o *SpanningTree) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.neighbors) != len(o.neighbors) {
		return false
	}
	for sw, edges := range s.neighbors {
		oEdges, ok := o.neighbors[sw]
		if !ok || len(edges) != len(oEdges) {
			return false
		}
		for next, port := range edges {
			if oPort, ok := oEdges[next]; !ok || oPort != port {
				return false
			}
		}
	}
	return true
}

func sortedKeys(m map[int]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
