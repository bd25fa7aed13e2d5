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
	"sync"

	"github.com/meridian-sdn/meridian/pkg/packet"
)

var _ Policy = (*MutablePolicy)(nil)

// MutablePolicy is an indirection cell whose inner policy can be swapped
// at runtime. A freshly installed inner policy immediately receives the
// cell's current network state, and later deliveries fan out to whatever
// policy is installed at that moment. The zero inner policy is Drop.
type MutablePolicy struct {
	netCell

	mu     sync.RWMutex
	policy Policy
}

// NewMutablePolicy returns a mutable cell holding Drop.
func NewMutablePolicy() *MutablePolicy {
	return &MutablePolicy{policy: Drop}
}

// Policy returns the currently installed inner policy.
func (m *MutablePolicy) Policy() Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// SetPolicy installs p as the inner policy and delivers the cell's current
// network state to it.
func (m *MutablePolicy) SetPolicy(p Policy) {
	m.mu.Lock()
	m.policy = p
	m.mu.Unlock()
	p.SetNetwork(m.Network())
}

func (m *MutablePolicy) SetNetwork(n Network) {
	if !m.swap(n) {
		return
	}
	m.Policy().SetNetwork(n)
}

func (m *MutablePolicy) Eval(pkt packet.Packet) Multiset {
	return m.Policy().Eval(pkt)
}

func (m *MutablePolicy) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	r, t := m.Policy().TrackEval(pkt)
	return r, trace(m, t)
}

func (m *MutablePolicy) String() string {
	return fmt.Sprintf("mutable(%s)", m.Policy())
}

var _ Policy = (*NetworkDerivedPolicy)(nil)

// NetworkDerivedPolicy recomputes its inner policy from every fresh
// network state. Before the first delivery, and whenever the generator
// declines by returning nil, the inner policy is Drop.
type NetworkDerivedPolicy struct {
	MutablePolicy
	fromNetwork func(Network) Policy
}

// NewNetworkDerivedPolicy returns a policy regenerated by fromNetwork on
// every network change.
func NewNetworkDerivedPolicy(fromNetwork func(Network) Policy) *NetworkDerivedPolicy {
	p := &NetworkDerivedPolicy{fromNetwork: fromNetwork}
	p.MutablePolicy.policy = Drop
	return p
}

func (p *NetworkDerivedPolicy) SetNetwork(n Network) {
	if !p.swap(n) {
		return
	}
	if n == nil {
		p.SetPolicy(Drop)
		return
	}
	generated := p.fromNetwork(n)
	if generated == nil {
		generated = Drop
	}
	p.SetPolicy(generated)
}

func (p *NetworkDerivedPolicy) String() string {
	return fmt.Sprintf("network-derived(%s)", p.Policy())
}

var _ Policy = (*DynamicPolicy)(nil)

// Update maps the currently installed policy to its replacement.
type Update func(current Policy) Policy

// DynamicPolicy is a mutable cell driven by application callbacks, e.g. a
// query bucket listener rewriting a forwarding policy as hosts are
// learned. Updates are serialized, so a callback reads a consistent
// current policy even when listeners fire concurrently.
type DynamicPolicy struct {
	MutablePolicy
	updateMu sync.Mutex
}

// NewDynamicPolicy returns a dynamic cell holding Drop, then runs init
// once with the cell so the application can install its initial policy
// and hook up listeners.
func NewDynamicPolicy(init func(*DynamicPolicy)) *DynamicPolicy {
	p := &DynamicPolicy{}
	p.MutablePolicy.policy = Drop
	if init != nil {
		init(p)
	}
	return p
}

// ApplyUpdate atomically replaces the inner policy with u(current).
func (p *DynamicPolicy) ApplyUpdate(u Update) {
	p.updateMu.Lock()
	defer p.updateMu.Unlock()
	p.SetPolicy(u(p.Policy()))
}

func (p *DynamicPolicy) String() string {
	return fmt.Sprintf("dynamic(%s)", p.Policy())
}
