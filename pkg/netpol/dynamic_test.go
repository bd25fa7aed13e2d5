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

package netpol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sdn/meridian/pkg/netpol"
	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/topology"
)

func TestMutablePolicy(t *testing.T) {
	pkt := locPacket(1, 1)

	cell := netpol.NewMutablePolicy()
	assert.True(t, cell.Eval(pkt).Empty())

	cell.SetPolicy(netpol.Passthrough)
	assert.Equal(t, 1, cell.Eval(pkt).Count(pkt))

	cell.SetPolicy(netpol.Drop)
	assert.True(t, cell.Eval(pkt).Empty())
}

func TestMutablePolicyNetworkHandover(t *testing.T) {
	n := testNetwork(t)

	cell := netpol.NewMutablePolicy()
	cell.SetNetwork(n)

	// A policy installed later receives the stored state immediately.
	flood := netpol.NewFlood()
	cell.SetPolicy(flood)
	assert.Equal(t, netpol.Network(n), flood.Network())
	assert.Equal(t, 2, cell.Eval(locPacket(1, 1)).Total())

	// A fresh delivery reaches the currently installed policy.
	flood2 := netpol.NewFlood()
	cell.SetPolicy(flood2)
	topo := topology.NewTopology()
	topo.AddSwitch(1, 1, 2)
	n2 := topology.NewNetwork(topo)
	cell.SetNetwork(n2)
	assert.Equal(t, netpol.Network(n2), flood2.Network())
}

func TestNetworkDerivedPolicy(t *testing.T) {
	generations := 0
	derived := netpol.NewNetworkDerivedPolicy(func(n netpol.Network) netpol.Policy {
		generations++
		// One fwd rule per boundary location of switch 1.
		var branches []netpol.Policy
		for _, loc := range n.EgressLocations().Sorted() {
			if loc.Switch == 1 {
				branches = append(branches, netpol.NewFwd(loc.Port))
			}
		}
		return netpol.NewParallel(branches...)
	})

	pkt := locPacket(1, 3)
	assert.True(t, derived.Eval(pkt).Empty())

	n := testNetwork(t)
	derived.SetNetwork(n)
	assert.Equal(t, 1, generations)
	// Boundary ports 1 and 2 on switch 1.
	assert.Equal(t, 2, derived.Eval(pkt).Total())

	// Redundant delivery does not regenerate.
	derived.SetNetwork(n)
	assert.Equal(t, 1, generations)

	topo := topology.NewTopology()
	topo.AddSwitch(1, 1)
	derived.SetNetwork(topology.NewNetwork(topo))
	assert.Equal(t, 2, generations)
	assert.Equal(t, 1, derived.Eval(pkt).Total())
}

func TestNetworkDerivedPolicyNilGeneration(t *testing.T) {
	derived := netpol.NewNetworkDerivedPolicy(func(netpol.Network) netpol.Policy {
		return nil
	})
	derived.SetNetwork(testNetwork(t))
	assert.True(t, derived.Eval(locPacket(1, 1)).Empty())
}

func TestDynamicPolicy(t *testing.T) {
	// A learning-switch style setup: unknown packets are diverted to a
	// bucket, and each diverted packet rewrites the policy.
	var dyn *netpol.DynamicPolicy
	query := netpol.NewPacketsBucket(1, "srcport")
	dyn = netpol.NewDynamicPolicy(func(d *netpol.DynamicPolicy) {
		d.SetPolicy(query)
	})
	query.Register(func(pkt packet.Packet) {
		port, ok := pkt.Int("srcport")
		require.True(t, ok)
		dyn.ApplyUpdate(func(current netpol.Policy) netpol.Policy {
			learned := netpol.NewRestrict(
				netpol.NewFwd(port),
				netpol.MustMatch(map[string]any{"srcport": port}),
			)
			return netpol.NewParallel(learned, current)
		})
	})

	first := packet.New(map[string]any{"srcport": 8, netpol.FieldOutport: netpol.UnsetPort})

	// The first packet is diverted to the listener and dropped.
	assert.True(t, dyn.Eval(first).Empty())

	// The listener installed a forwarding rule for the learned port.
	out := dyn.Eval(first)
	require.Equal(t, 1, out.Total())
	out.Each(func(p packet.Packet, n int) {
		port, _ := p.Int(netpol.FieldOutport)
		assert.Equal(t, 8, port)
	})
}

func TestDynamicPolicyNetworkPropagation(t *testing.T) {
	flood := netpol.NewFlood()
	dyn := netpol.NewDynamicPolicy(func(d *netpol.DynamicPolicy) {
		d.SetPolicy(flood)
	})

	n := testNetwork(t)
	dyn.SetNetwork(n)
	assert.Equal(t, netpol.Network(n), flood.Network())

	// Updates hand the stored state to the replacement policy.
	flood2 := netpol.NewFlood()
	dyn.ApplyUpdate(func(netpol.Policy) netpol.Policy { return flood2 })
	assert.Equal(t, netpol.Network(n), flood2.Network())
}
