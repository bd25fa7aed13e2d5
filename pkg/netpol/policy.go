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
	"github.com/meridian-sdn/meridian/pkg/topology"
)

// The unit policies. Passthrough emits the input packet once, Drop emits
// nothing. They ignore the network state and hold no state of their own.
var (
	Passthrough Policy = passthroughPolicy{}
	Drop        Policy = dropPolicy{}
)

type passthroughPolicy struct{}

func (passthroughPolicy) SetNetwork(Network) {}

func (passthroughPolicy) Network() Network { return nil }

func (p passthroughPolicy) Eval(pkt packet.Packet) Multiset {
	return NewMultiset(pkt)
}

func (p passthroughPolicy) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (passthroughPolicy) String() string { return "passthrough" }

type dropPolicy struct{}

func (dropPolicy) SetNetwork(Network) {}

func (dropPolicy) Network() Network { return nil }

func (p dropPolicy) Eval(packet.Packet) Multiset {
	return NewMultiset()
}

func (p dropPolicy) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (dropPolicy) String() string { return "drop" }

var _ Policy = (*Push)(nil)

// Push pushes one value on each given field's stack.
type Push struct {
	netCell
	values map[string]any
}

// NewPush returns a policy pushing the given field values.
func NewPush(values map[string]any) *Push {
	return &Push{values: values}
}

func (p *Push) SetNetwork(n Network) { p.swap(n) }

func (p *Push) Eval(pkt packet.Packet) Multiset {
	return NewMultiset(pkt.PushMany(p.values))
}

func (p *Push) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *Push) String() string {
	return editString("push", p.values)
}

var _ Policy = (*Pop)(nil)

// Pop pops the current value off each named field's stack. Fields absent
// from the packet are skipped.
type Pop struct {
	netCell
	fields []string
}

// NewPop returns a policy popping the named fields.
func NewPop(fields ...string) *Pop {
	return &Pop{fields: fields}
}

func (p *Pop) SetNetwork(n Network) { p.swap(n) }

func (p *Pop) Eval(pkt packet.Packet) Multiset {
	return NewMultiset(pkt.Pop(p.fields...))
}

func (p *Pop) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *Pop) String() string {
	return "pop(" + strings.Join(p.fields, ", ") + ")"
}

var _ Policy = (*Modify)(nil)

// Modify replaces the current value of each given field, i.e. a pop
// followed by a push of the same field.
type Modify struct {
	netCell
	values map[string]any
}

// NewModify returns a policy replacing the given field values.
func NewModify(values map[string]any) *Modify {
	return &Modify{values: values}
}

func (p *Modify) SetNetwork(n Network) { p.swap(n) }

func (p *Modify) Eval(pkt packet.Packet) Multiset {
	return NewMultiset(pkt.ModifyMany(p.values))
}

func (p *Modify) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *Modify) String() string {
	return editString("modify", p.values)
}

var _ Policy = (*Copy)(nil)

// Copy pushes the current value of each source field onto the
// corresponding destination field's stack. Absent source fields are
// skipped.
type Copy struct {
	netCell
	mapping map[string]string // destination -> source
}

// NewCopy returns a policy copying source field values onto destinations.
func NewCopy(mapping map[string]string) *Copy {
	return &Copy{mapping: mapping}
}

func (p *Copy) SetNetwork(n Network) { p.swap(n) }

func (p *Copy) Eval(pkt packet.Packet) Multiset {
	pushes := make(map[string]any, len(p.mapping))
	for dst, src := range p.mapping {
		if v, ok := pkt.Get(src); ok {
			pushes[dst] = v
		}
	}
	return NewMultiset(pkt.PushMany(pushes))
}

func (p *Copy) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *Copy) String() string {
	return mappingString("copy", p.mapping)
}

var _ Policy = (*Move)(nil)

// Move transfers the current value of each source field onto the
// corresponding destination field, popping the source. A source field
// absent from the packet is skipped entirely; edits for present fields
// still apply.
type Move struct {
	netCell
	mapping map[string]string // destination -> source
}

// NewMove returns a policy moving source field values onto destinations.
func NewMove(mapping map[string]string) *Move {
	return &Move{mapping: mapping}
}

func (p *Move) SetNetwork(n Network) { p.swap(n) }

func (p *Move) Eval(pkt packet.Packet) Multiset {
	pushes := make(map[string]any, len(p.mapping))
	var pops []string
	for dst, src := range p.mapping {
		if v, ok := pkt.Get(src); ok {
			pushes[dst] = v
			pops = append(pops, src)
		}
	}
	return NewMultiset(pkt.PushMany(pushes).Pop(pops...))
}

func (p *Move) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *Move) String() string {
	return mappingString("move", p.mapping)
}

var _ Policy = (*Fwd)(nil)

// Fwd forwards the packet out of one port: the sentinel UnsetPort value is
// popped off the outport stack if present, then the port is pushed. The
// packet always ends up with exactly one new current outport value.
type Fwd struct {
	netCell
	port    int
	derived Policy
}

// NewFwd returns a policy forwarding out of the given port.
func NewFwd(port int) *Fwd {
	derived := NewSequential(
		NewIf(MustMatch(map[string]any{FieldOutport: UnsetPort}), NewPop(FieldOutport), nil),
		NewPush(map[string]any{FieldOutport: port}),
	)
	return &Fwd{port: port, derived: derived}
}

// Port returns the configured outport.
func (p *Fwd) Port() int { return p.port }

func (p *Fwd) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	p.derived.SetNetwork(n)
}

func (p *Fwd) Eval(pkt packet.Packet) Multiset {
	return p.derived.Eval(pkt)
}

func (p *Fwd) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	r, t := p.derived.TrackEval(pkt)
	return r, trace(p, t)
}

func (p *Fwd) String() string {
	return fmt.Sprintf("fwd(%d)", p.port)
}

var _ Policy = (*Flood)(nil)

// Flood emits one copy of the packet for every boundary egress port of the
// source switch and every spanning-tree edge port towards a tree neighbor,
// excluding the port the packet arrived on. Without network state, or for
// a switch outside the spanning tree, nothing is emitted.
type Flood struct {
	netCell

	cacheMu sync.RWMutex
	egress  topology.LocationSet
	tree    *topology.SpanningTree
}

// NewFlood returns a flooding policy.
func NewFlood() *Flood {
	return &Flood{}
}

func (p *Flood) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	if n == nil {
		return
	}
	updatedEgress := n.EgressLocations()
	updatedTree := n.SpanningTree()
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if !p.egress.Equal(updatedEgress) {
		p.egress = updatedEgress
	}
	if p.tree == nil || !p.tree.Equal(updatedTree) {
		p.tree = updatedTree
	}
}

func (p *Flood) Eval(pkt packet.Packet) Multiset {
	if p.Network() == nil {
		return NewMultiset()
	}
	sw, ok := pkt.Int(FieldSwitch)
	if !ok {
		return NewMultiset()
	}
	inport, ok := pkt.Int(FieldInport)
	if !ok {
		return NewMultiset()
	}
	p.cacheMu.RLock()
	egress, tree := p.egress, p.tree
	p.cacheMu.RUnlock()

	if tree == nil || !tree.HasSwitch(sw) {
		return NewMultiset()
	}
	ports := make(map[int]struct{})
	for loc := range egress {
		if loc.Switch == sw {
			ports[loc.Port] = struct{}{}
		}
	}
	for _, neighbor := range tree.Neighbors(sw) {
		if port, ok := tree.EdgePort(sw, neighbor); ok {
			ports[port] = struct{}{}
		}
	}
	delete(ports, inport)

	out := NewMultiset()
	for port := range ports {
		out.Add(replaceOrPushOutport(pkt, port), 1)
	}
	return out
}

func (p *Flood) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return p.Eval(pkt), trace(p)
}

func (p *Flood) String() string { return "flood" }

// replaceOrPushOutport implements the forwarding edit shared by Fwd and
// Flood: the sentinel unset outport is replaced, anything else gets a new
// value pushed on top.
func replaceOrPushOutport(pkt packet.Packet, port int) packet.Packet {
	if v, ok := pkt.Int(FieldOutport); ok && v == UnsetPort {
		return pkt.Modify(FieldOutport, port)
	}
	return pkt.Push(FieldOutport, port)
}

var _ Policy = (*Restrict)(nil)

// Restrict evaluates the policy only for packets matching the predicate;
// everything else is dropped.
type Restrict struct {
	netCell
	policy Policy
	pred   Predicate
}

// NewRestrict returns the policy gated behind the predicate.
func NewRestrict(policy Policy, pred Predicate) *Restrict {
	return &Restrict{policy: policy, pred: pred}
}

func (p *Restrict) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	p.policy.SetNetwork(n)
	p.pred.SetNetwork(n)
}

func (p *Restrict) Eval(pkt packet.Packet) Multiset {
	if p.pred.Eval(pkt) {
		return p.policy.Eval(pkt)
	}
	return NewMultiset()
}

func (p *Restrict) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	ok, predTrace := p.pred.TrackEval(pkt)
	if !ok {
		return NewMultiset(), trace(p, predTrace)
	}
	r, polTrace := p.policy.TrackEval(pkt)
	return r, trace(p, predTrace, polTrace)
}

func (p *Restrict) String() string {
	return fmt.Sprintf("restrict(%s, %s)", p.policy, p.pred)
}

var _ Policy = (*Remove)(nil)

// Remove evaluates the policy only for packets not matching the predicate.
type Remove struct {
	netCell
	policy Policy
	pred   Predicate
}

// NewRemove returns the policy gated behind the complement of the
// predicate.
func NewRemove(policy Policy, pred Predicate) *Remove {
	return &Remove{policy: policy, pred: pred}
}

func (p *Remove) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	p.policy.SetNetwork(n)
	p.pred.SetNetwork(n)
}

func (p *Remove) Eval(pkt packet.Packet) Multiset {
	if !p.pred.Eval(pkt) {
		return p.policy.Eval(pkt)
	}
	return NewMultiset()
}

func (p *Remove) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	ok, predTrace := p.pred.TrackEval(pkt)
	if ok {
		return NewMultiset(), trace(p, predTrace)
	}
	r, polTrace := p.policy.TrackEval(pkt)
	return r, trace(p, predTrace, polTrace)
}

func (p *Remove) String() string {
	return fmt.Sprintf("remove(%s, %s)", p.policy, p.pred)
}

var _ Policy = (*If)(nil)

// If evaluates the then-branch for packets matching the predicate and the
// else-branch for the rest. It is the parallel composition of the two
// restricted branches.
type If struct {
	netCell
	pred    Predicate
	then    Policy
	els     Policy
	derived Policy
}

// NewIf returns the branching policy. A nil else-branch defaults to
// Passthrough.
func NewIf(pred Predicate, then, els Policy) *If {
	if els == nil {
		els = Passthrough
	}
	derived := NewParallel(
		NewRestrict(then, pred),
		NewRestrict(els, NewNegate(pred)),
	)
	return &If{pred: pred, then: then, els: els, derived: derived}
}

func (p *If) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	p.derived.SetNetwork(n)
}

func (p *If) Eval(pkt packet.Packet) Multiset {
	return p.derived.Eval(pkt)
}

func (p *If) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	r, t := p.derived.TrackEval(pkt)
	return r, trace(p, t)
}

func (p *If) String() string {
	return fmt.Sprintf("if(%s, %s, %s)", p.pred, p.then, p.els)
}

var _ Policy = (*Parallel)(nil)

// Parallel evaluates every child against the same input packet and merges
// the results by summing the multiplicities of equal packets. An empty
// parallel composition drops everything.
type Parallel struct {
	netCell
	policies []Policy
}

// NewParallel returns the parallel composition of the given policies.
func NewParallel(policies ...Policy) *Parallel {
	return &Parallel{policies: policies}
}

func (p *Parallel) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	for _, c := range p.policies {
		c.SetNetwork(n)
	}
}

func (p *Parallel) Eval(pkt packet.Packet) Multiset {
	out := NewMultiset()
	for _, c := range p.policies {
		out.Update(c.Eval(pkt))
	}
	return out
}

func (p *Parallel) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	out := NewMultiset()
	var children []*Trace
	for _, c := range p.policies {
		r, t := c.TrackEval(pkt)
		out.Update(r)
		children = append(children, t)
	}
	return out, trace(p, children...)
}

func (p *Parallel) String() string {
	return nAryString("parallel", policyStrings(p.policies))
}

var _ Policy = (*Sequential)(nil)

// Sequential feeds the input packet through its children in order. At each
// stage, every intermediate packet with multiplicity m is evaluated by the
// next child and contributes m times the child's multiplicities to the
// next intermediate multiset. An empty intermediate multiset
// short-circuits the remaining stages. An empty sequential composition is
// Passthrough.
type Sequential struct {
	netCell
	policies []Policy
}

// NewSequential returns the sequential composition of the given policies.
func NewSequential(policies ...Policy) *Sequential {
	return &Sequential{policies: policies}
}

func (p *Sequential) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	for _, c := range p.policies {
		c.SetNetwork(n)
	}
}

func (p *Sequential) Eval(pkt packet.Packet) Multiset {
	cur := NewMultiset(pkt)
	for _, c := range p.policies {
		if cur.Empty() {
			break
		}
		next := NewMultiset()
		cur.Each(func(lp packet.Packet, lc int) {
			c.Eval(lp).Each(func(rp packet.Packet, rc int) {
				next.Add(rp, lc*rc)
			})
		})
		cur = next
	}
	return cur
}

func (p *Sequential) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	cur := NewMultiset(pkt)
	var children []*Trace
	for _, c := range p.policies {
		if cur.Empty() {
			break
		}
		next := NewMultiset()
		cur.Each(func(lp packet.Packet, lc int) {
			r, t := c.TrackEval(lp)
			children = append(children, t)
			r.Each(func(rp packet.Packet, rc int) {
				next.Add(rp, lc*rc)
			})
		})
		cur = next
	}
	return cur, trace(p, children...)
}

func (p *Sequential) String() string {
	return nAryString("sequential", policyStrings(p.policies))
}

var _ Policy = (*Recurse)(nil)

// Recurse wraps a policy that refers, directly or through a mutable cell,
// back to itself. Propagation terminates because the wrapper checks the
// wrapped policy's stored state instead of its own before fanning out.
type Recurse struct {
	netCell
	policy Policy
}

// NewRecurse returns a propagation-safe wrapper around a self-referential
// policy.
func NewRecurse(policy Policy) *Recurse {
	return &Recurse{policy: policy}
}

func (p *Recurse) SetNetwork(n Network) {
	// Guard on the wrapped policy's state to break propagation cycles.
	if n == p.policy.Network() {
		return
	}
	p.swap(n)
	p.policy.SetNetwork(n)
}

func (p *Recurse) Eval(pkt packet.Packet) Multiset {
	return p.policy.Eval(pkt)
}

func (p *Recurse) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	r, t := p.policy.TrackEval(pkt)
	return r, trace(p, t)
}

func (p *Recurse) String() string { return "recurse" }

func policyStrings(policies []Policy) []string {
	out := make([]string, len(policies))
	for i, p := range policies {
		out[i] = p.String()
	}
	return out
}

func editString(name string, values map[string]any) string {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, f := range fields {
		if i != 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", f, values[f])
	}
	b.WriteByte(')')
	return b.String()
}

func mappingString(name string, mapping map[string]string) string {
	dsts := make([]string, 0, len(mapping))
	for d := range mapping {
		dsts = append(dsts, d)
	}
	sort.Strings(dsts)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for i, d := range dsts {
		if i != 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s<-%s", d, mapping[d])
	}
	b.WriteByte(')')
	return b.String()
}
