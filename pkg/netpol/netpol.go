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

package netpol

import (
	"strings"
	"sync"

	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/topology"
)

// Location fields the algebra interprets on a packet.
const (
	FieldSwitch  = "switch"
	FieldInport  = "inport"
	FieldOutport = "outport"
)

// UnsetPort is the sentinel outport value the runtime pushes on packets
// before evaluation. Fwd and Flood replace it instead of stacking on top.
const UnsetPort = -1

// Network is the read-only view of the network state consumed by the
// algebra. Snapshots are immutable; a changed topology is delivered as a
// fresh snapshot. Implementations must be comparable with ==, which is how
// SetNetwork detects redundant deliveries.
type Network interface {
	EgressLocations() topology.LocationSet
	SpanningTree() *topology.SpanningTree
}

var _ Network = (*topology.Network)(nil)

// NetworkEvaluated is the propagation protocol implemented by every
// predicate and policy node. SetNetwork must be idempotent: delivering the
// currently stored state again must neither recompute caches nor fan out
// to children.
type NetworkEvaluated interface {
	SetNetwork(Network)
	// Network returns the last delivered state, or nil before the first
	// delivery.
	Network() Network
	String() string
}

// Predicate is a boolean classifier over a packet and the network state.
type Predicate interface {
	NetworkEvaluated
	Eval(packet.Packet) bool
	// TrackEval returns the same result as Eval together with a trace of
	// the nodes actually visited.
	TrackEval(packet.Packet) (bool, *Trace)
}

// Policy maps one packet to a multiset of output packets.
type Policy interface {
	NetworkEvaluated
	Eval(packet.Packet) Multiset
	// TrackEval returns the same result as Eval together with a trace of
	// the nodes actually visited.
	TrackEval(packet.Packet) (Multiset, *Trace)
}

// Trace is the structural record of an evaluation: the node itself plus
// the traces of every child that was visited. Short-circuiting operators
// produce traces covering only the children evaluated before the
// short-circuit, including the deciding one. Sequential composition emits
// one child trace per (intermediate packet, stage) evaluation, so a trace
// can hold more entries than the tree has children.
type Trace struct {
	Node     NetworkEvaluated
	Children []*Trace
}

func trace(n NetworkEvaluated, children ...*Trace) *Trace {
	return &Trace{Node: n, Children: children}
}

func (t *Trace) String() string {
	var b strings.Builder
	t.format(&b, 0)
	return b.String()
}

func (t *Trace) format(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(t.Node.String())
	b.WriteByte('\n')
	for _, c := range t.Children {
		c.format(b, depth+1)
	}
}

// netCell holds the last network state delivered to a node. Reads and the
// swap are safe against concurrent evaluation.
type netCell struct {
	mu      sync.RWMutex
	network Network
}

// Network returns the stored state.
func (c *netCell) Network() Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.network
}

// swap stores n and reports whether it differs from the previous state.
// Callers skip cache recomputation and child fan-out on false.
func (c *netCell) swap(n Network) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n == c.network {
		return false
	}
	c.network = n
	return true
}
