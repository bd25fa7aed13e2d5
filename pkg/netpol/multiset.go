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

	"github.com/meridian-sdn/meridian/pkg/packet"
)

// Multiset maps distinct packets, by value equality, to a positive
// multiplicity. Two policy branches producing identical packets are merged
// by summing multiplicities. Multisets are not safe for concurrent
// mutation; every evaluation builds its own.
type Multiset map[string]multisetEntry

type multisetEntry struct {
	pkt   packet.Packet
	count int
}

// NewMultiset returns a multiset holding each given packet once.
func NewMultiset(pkts ...packet.Packet) Multiset {
	m := make(Multiset, len(pkts))
	for _, p := range pkts {
		m.Add(p, 1)
	}
	return m
}

// Add raises the multiplicity of the packet by n. Non-positive n is
// ignored.
func (m Multiset) Add(p packet.Packet, n int) {
	if n <= 0 {
		return
	}
	key := p.Fingerprint()
	e := m[key]
	m[key] = multisetEntry{pkt: p, count: e.count + n}
}

// Update adds every entry of o into m.
func (m Multiset) Update(o Multiset) {
	for _, e := range o {
		m.Add(e.pkt, e.count)
	}
}

// Count returns the multiplicity of the packet, zero if absent.
func (m Multiset) Count(p packet.Packet) int {
	return m[p.Fingerprint()].count
}

// Distinct returns the number of distinct packets.
func (m Multiset) Distinct() int {
	return len(m)
}

// Total returns the sum of all multiplicities.
func (m Multiset) Total() int {
	t := 0
	for _, e := range m {
		t += e.count
	}
	return t
}

// Empty reports whether the multiset holds no packets.
func (m Multiset) Empty() bool {
	return len(m) == 0
}

// Each calls fn for every (packet, multiplicity) entry in deterministic
// order.
func (m Multiset) Each(fn func(packet.Packet, int)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := m[k]
		fn(e.pkt, e.count)
	}
}

// Equal reports whether both multisets hold the same packets with the
// same multiplicities.
func (m Multiset) Equal(o Multiset) bool {
	if len(m) != len(o) {
		return false
	}
	for k, e := range m {
		if o[k].count != e.count {
			return false
		}
	}
	return true
}

func (m Multiset) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	m.Each(func(p packet.Packet, n int) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s: %d", p, n)
	})
	b.WriteByte('}')
	return b.String()
}
