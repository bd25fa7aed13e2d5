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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/private/serrors"
	"github.com/meridian-sdn/meridian/pkg/topology"
)

// The constant predicates. They ignore both the packet and the network
// state and hold no state of their own.
var (
	AllPackets Predicate = constPredicate(true)
	NoPackets  Predicate = constPredicate(false)
)

type constPredicate bool

func (p constPredicate) SetNetwork(Network) {}

func (p constPredicate) Network() Network { return nil }

func (p constPredicate) Eval(packet.Packet) bool { return bool(p) }

func (p constPredicate) TrackEval(pkt packet.Packet) (bool, *Trace) {
	return bool(p), trace(p)
}

func (p constPredicate) String() string {
	if p {
		return "all-packets"
	}
	return "no-packets"
}

var _ Predicate = (*Match)(nil)

// Match is a conjunction of per-field patterns. A field mapped to a nil
// pattern requires the field to be absent from the packet; a field mapped
// to a pattern requires the field to be present with a matching current
// value. Anything else fails closed.
type Match struct {
	netCell
	fields map[string]Pattern
	// literals are the construction-time field literals, retained for
	// serialization.
	literals map[string]any
}

// NewMatch builds a Match from field literals, consulting the field
// pattern registry per field. A nil literal requires the field to be
// absent. Malformed literals are rejected here.
func NewMatch(fields map[string]any) (*Match, error) {
	m := make(map[string]Pattern, len(fields))
	for field, v := range fields {
		if v == nil {
			m[field] = nil
			continue
		}
		pat, err := FieldPattern(field)(v)
		if err != nil {
			return nil, serrors.Wrap("building field pattern", err, "field", field)
		}
		m[field] = pat
	}
	literals := make(map[string]any, len(fields))
	for field, v := range fields {
		literals[field] = v
	}
	return &Match{fields: m, literals: literals}, nil
}

// MustMatch is like NewMatch but panics on malformed literals. For use
// with literals known to be valid.
func MustMatch(fields map[string]any) *Match {
	m, err := NewMatch(fields)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Match) SetNetwork(n Network) {
	m.swap(n)
}

func (m *Match) Eval(pkt packet.Packet) bool {
	for field, pattern := range m.fields {
		v, ok := pkt.Get(field)
		if ok {
			if pattern == nil || !pattern.Match(v) {
				return false
			}
		} else if pattern != nil {
			return false
		}
	}
	return true
}

func (m *Match) TrackEval(pkt packet.Packet) (bool, *Trace) {
	return m.Eval(pkt), trace(m)
}

func (m *Match) String() string {
	fields := make([]string, 0, len(m.fields))
	for f := range m.fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("match(")
	for i, f := range fields {
		if i != 0 {
			b.WriteString(", ")
		}
		if m.fields[f] == nil {
			fmt.Fprintf(&b, "%s=absent", f)
		} else {
			fmt.Fprintf(&b, "%s=%s", f, m.fields[f])
		}
	}
	b.WriteByte(')')
	return b.String()
}

// key is the structural identity of the match, used to group packets in
// query buckets.
func (m *Match) key() string {
	return m.String()
}

var _ Predicate = (*IngressNetwork)(nil)

// IngressNetwork is true for packets whose (switch, inport) pair is a
// boundary location of the network.
type IngressNetwork struct {
	locationPredicate
}

// NewIngressNetwork returns a predicate matching packets that entered the
// network at a boundary location.
func NewIngressNetwork() *IngressNetwork {
	p := &IngressNetwork{}
	p.portField = FieldInport
	return p
}

func (p *IngressNetwork) TrackEval(pkt packet.Packet) (bool, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *IngressNetwork) String() string { return "ingress-network" }

var _ Predicate = (*EgressNetwork)(nil)

// EgressNetwork is true for packets whose (switch, outport) pair is a
// boundary location of the network.
type EgressNetwork struct {
	locationPredicate
}

// NewEgressNetwork returns a predicate matching packets about to leave the
// network at a boundary location.
func NewEgressNetwork() *EgressNetwork {
	p := &EgressNetwork{}
	p.portField = FieldOutport
	return p
}

func (p *EgressNetwork) TrackEval(pkt packet.Packet) (bool, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *EgressNetwork) String() string { return "egress-network" }

// locationPredicate is the shared implementation of the boundary location
// predicates. It caches the boundary set derived from the network state.
type locationPredicate struct {
	netCell
	portField string

	cacheMu  sync.RWMutex
	boundary topology.LocationSet
}

func (p *locationPredicate) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	var updated topology.LocationSet
	if n != nil {
		updated = n.EgressLocations()
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if !p.boundary.Equal(updated) {
		p.boundary = updated
	}
}

// Eval fails closed: absent location fields and a missing network state
// both yield false.
func (p *locationPredicate) Eval(pkt packet.Packet) bool {
	sw, ok := pkt.Int(FieldSwitch)
	if !ok {
		return false
	}
	port, ok := pkt.Int(p.portField)
	if !ok {
		return false
	}
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return p.boundary.Contains(topology.Location{Switch: sw, Port: port})
}

var _ Predicate = (*Union)(nil)

// Union is the n-ary disjunction of predicates. An empty union is false,
// the identity element of disjunction.
type Union struct {
	netCell
	preds []Predicate
}

// NewUnion returns the disjunction of the given predicates.
func NewUnion(preds ...Predicate) *Union {
	return &Union{preds: preds}
}

func (p *Union) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	for _, c := range p.preds {
		c.SetNetwork(n)
	}
}

func (p *Union) Eval(pkt packet.Packet) bool {
	for _, c := range p.preds {
		if c.Eval(pkt) {
			return true
		}
	}
	return false
}

func (p *Union) TrackEval(pkt packet.Packet) (bool, *Trace) {
	var children []*Trace
	for _, c := range p.preds {
		r, t := c.TrackEval(pkt)
		children = append(children, t)
		if r {
			return true, trace(p, children...)
		}
	}
	return false, trace(p, children...)
}

func (p *Union) String() string {
	return nAryString("union", predStrings(p.preds))
}

var _ Predicate = (*Intersect)(nil)

// Intersect is the n-ary conjunction of predicates, short-circuiting on
// the first false child. An empty intersection is true, the identity
// element of conjunction.
type Intersect struct {
	netCell
	preds []Predicate
}

// NewIntersect returns the conjunction of the given predicates.
func NewIntersect(preds ...Predicate) *Intersect {
	return &Intersect{preds: preds}
}

func (p *Intersect) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	for _, c := range p.preds {
		c.SetNetwork(n)
	}
}

func (p *Intersect) Eval(pkt packet.Packet) bool {
	for _, c := range p.preds {
		if !c.Eval(pkt) {
			return false
		}
	}
	return true
}

func (p *Intersect) TrackEval(pkt packet.Packet) (bool, *Trace) {
	var children []*Trace
	for _, c := range p.preds {
		r, t := c.TrackEval(pkt)
		children = append(children, t)
		if !r {
			return false, trace(p, children...)
		}
	}
	return true, trace(p, children...)
}

func (p *Intersect) String() string {
	return nAryString("intersect", predStrings(p.preds))
}

var _ Predicate = (*Negate)(nil)

// Negate is the boolean complement of its child.
type Negate struct {
	netCell
	pred Predicate
}

// NewNegate returns the complement of the given predicate.
func NewNegate(pred Predicate) *Negate {
	return &Negate{pred: pred}
}

func (p *Negate) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	p.pred.SetNetwork(n)
}

func (p *Negate) Eval(pkt packet.Packet) bool {
	return !p.pred.Eval(pkt)
}

func (p *Negate) TrackEval(pkt packet.Packet) (bool, *Trace) {
	r, t := p.pred.TrackEval(pkt)
	return !r, trace(p, t)
}

func (p *Negate) String() string {
	return fmt.Sprintf("negate(%s)", p.pred)
}

var _ Predicate = (*Difference)(nil)

// Difference is true iff a is true and b is false. It evaluates through
// the derived form intersect(negate(b), a).
type Difference struct {
	netCell
	a, b    Predicate
	derived Predicate
}

// NewDifference returns the predicate a minus b.
func NewDifference(a, b Predicate) *Difference {
	return &Difference{
		a:       a,
		b:       b,
		derived: NewIntersect(NewNegate(b), a),
	}
}

func (p *Difference) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	p.derived.SetNetwork(n)
}

func (p *Difference) Eval(pkt packet.Packet) bool {
	return p.derived.Eval(pkt)
}

func (p *Difference) TrackEval(pkt packet.Packet) (bool, *Trace) {
	r, t := p.derived.TrackEval(pkt)
	return r, trace(p, t)
}

func (p *Difference) String() string {
	return fmt.Sprintf("difference(%s, %s)", p.a, p.b)
}

func predStrings(preds []Predicate) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.String()
	}
	return out
}

func nAryString(name string, children []string) string {
	return name + "(" + strings.Join(children, ", ") + ")"
}
