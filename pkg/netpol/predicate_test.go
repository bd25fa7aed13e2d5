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
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sdn/meridian/pkg/netpol"
	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/topology"
)

func TestConstPredicates(t *testing.T) {
	pkt := packet.New(map[string]any{"srcport": 1})
	assert.True(t, netpol.AllPackets.Eval(pkt))
	assert.False(t, netpol.NoPackets.Eval(pkt))
}

func TestMatch(t *testing.T) {
	testCases := map[string]struct {
		fields map[string]any
		pkt    packet.Packet
		want   bool
	}{
		"empty match accepts all": {
			fields: map[string]any{},
			pkt:    packet.New(map[string]any{"srcport": 1}),
			want:   true,
		},
		"value match": {
			fields: map[string]any{"srcport": 80},
			pkt:    packet.New(map[string]any{"srcport": 80, "dstport": 1}),
			want:   true,
		},
		"value mismatch": {
			fields: map[string]any{"srcport": 80},
			pkt:    packet.New(map[string]any{"srcport": 443}),
			want:   false,
		},
		"required field absent": {
			fields: map[string]any{"srcport": 80},
			pkt:    packet.New(map[string]any{"dstport": 80}),
			want:   false,
		},
		"absent requirement holds": {
			fields: map[string]any{"vlan": nil},
			pkt:    packet.New(map[string]any{"srcport": 1}),
			want:   true,
		},
		"absent requirement violated": {
			fields: map[string]any{"vlan": nil},
			pkt:    packet.New(map[string]any{"vlan": 10}),
			want:   false,
		},
		"prefix field": {
			fields: map[string]any{"srcip": "10.0.0.0/8"},
			pkt: packet.New(map[string]any{
				"srcip": netip.MustParseAddr("10.1.2.3"),
			}),
			want: true,
		},
		"conjunction over fields": {
			fields: map[string]any{"srcport": 80, "dstport": 443},
			pkt:    packet.New(map[string]any{"srcport": 80, "dstport": 80}),
			want:   false,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			m, err := netpol.NewMatch(tc.fields)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.Eval(tc.pkt))
		})
	}
}

func TestMatchBadLiteral(t *testing.T) {
	_, err := netpol.NewMatch(map[string]any{"srcip": "not-an-address"})
	assert.Error(t, err)
}

func TestMatchCurrentValueOnly(t *testing.T) {
	m := netpol.MustMatch(map[string]any{"srcport": 80})
	pkt := packet.New(map[string]any{"srcport": 80}).Push("srcport", 443)
	assert.False(t, m.Eval(pkt))
	assert.True(t, m.Eval(pkt.Pop("srcport")))
}

func TestUnionIntersect(t *testing.T) {
	tcp := netpol.MustMatch(map[string]any{"protocol": 6})
	http := netpol.MustMatch(map[string]any{"dstport": 80})

	pktBoth := packet.New(map[string]any{"protocol": 6, "dstport": 80})
	pktTCP := packet.New(map[string]any{"protocol": 6, "dstport": 22})
	pktNone := packet.New(map[string]any{"protocol": 17, "dstport": 53})

	union := netpol.NewUnion(tcp, http)
	assert.True(t, union.Eval(pktBoth))
	assert.True(t, union.Eval(pktTCP))
	assert.False(t, union.Eval(pktNone))

	intersect := netpol.NewIntersect(tcp, http)
	assert.True(t, intersect.Eval(pktBoth))
	assert.False(t, intersect.Eval(pktTCP))

	// Identity elements of the n-ary operators.
	assert.False(t, netpol.NewUnion().Eval(pktBoth))
	assert.True(t, netpol.NewIntersect().Eval(pktBoth))
}

func TestNegate(t *testing.T) {
	tcp := netpol.MustMatch(map[string]any{"protocol": 6})
	pkt := packet.New(map[string]any{"protocol": 6})

	assert.False(t, netpol.NewNegate(tcp).Eval(pkt))
	assert.True(t, netpol.NewNegate(netpol.NewNegate(tcp)).Eval(pkt))
}

func TestDifference(t *testing.T) {
	tcp := netpol.MustMatch(map[string]any{"protocol": 6})
	http := netpol.MustMatch(map[string]any{"dstport": 80})

	diff := netpol.NewDifference(tcp, http)

	// TCP but not HTTP.
	assert.True(t, diff.Eval(packet.New(map[string]any{"protocol": 6, "dstport": 22})))
	// Both sides match: excluded.
	assert.False(t, diff.Eval(packet.New(map[string]any{"protocol": 6, "dstport": 80})))
	// Only the subtrahend matches: excluded.
	assert.False(t, diff.Eval(packet.New(map[string]any{"protocol": 17, "dstport": 80})))

	// The result depends on both operands, it is not a contradiction over
	// the first.
	assert.True(t, diff.Eval(packet.New(map[string]any{"protocol": 6})))
}

func TestLocationPredicates(t *testing.T) {
	n := testNetwork(t)

	ingress := netpol.NewIngressNetwork()
	egress := netpol.NewEgressNetwork()
	ingress.SetNetwork(n)
	egress.SetNetwork(n)

	// 1:1 is a boundary port, 1:3 is an inter-switch link port.
	assert.True(t, ingress.Eval(locPacket(1, 1)))
	assert.False(t, ingress.Eval(locPacket(1, 3)))

	out := packet.New(map[string]any{
		netpol.FieldSwitch:  2,
		netpol.FieldOutport: 2,
	})
	assert.True(t, egress.Eval(out))
	assert.False(t, egress.Eval(out.Modify(netpol.FieldOutport, 1)))

	// Fails closed without location fields.
	assert.False(t, ingress.Eval(packet.New(map[string]any{"srcport": 1})))
}

func TestLocationPredicateWithoutNetwork(t *testing.T) {
	ingress := netpol.NewIngressNetwork()
	assert.False(t, ingress.Eval(locPacket(1, 1)))
	assert.Nil(t, ingress.Network())
}

func TestSetNetworkIdempotent(t *testing.T) {
	stub := &stubNetwork{
		egress: topology.LocationSet{{Switch: 1, Port: 1}: {}},
		tree:   topology.NewTopology().MinimumSpanningTree(),
	}

	ingress := netpol.NewIngressNetwork()
	ingress.SetNetwork(stub)
	ingress.SetNetwork(stub)
	ingress.SetNetwork(stub)
	assert.Equal(t, 1, stub.egressCalls)
	assert.Equal(t, netpol.Network(stub), ingress.Network())
}

func TestSetNetworkPropagates(t *testing.T) {
	n := testNetwork(t)

	inner := netpol.NewIngressNetwork()
	outer := netpol.NewNegate(netpol.NewUnion(netpol.NoPackets, inner))
	outer.SetNetwork(n)

	assert.Equal(t, netpol.Network(n), inner.Network())
	assert.False(t, outer.Eval(locPacket(1, 1)))
	assert.True(t, outer.Eval(locPacket(1, 3)))
}

func TestPredicateTrackEval(t *testing.T) {
	tcp := netpol.MustMatch(map[string]any{"protocol": 6})
	http := netpol.MustMatch(map[string]any{"dstport": 80})
	pred := netpol.NewIntersect(tcp, http)

	// The first child already fails: the trace stops there.
	ok, tr := pred.TrackEval(packet.New(map[string]any{"protocol": 17}))
	assert.False(t, ok)
	require.Len(t, tr.Children, 1)
	assert.Same(t, netpol.NetworkEvaluated(tcp), tr.Children[0].Node)

	ok, tr = pred.TrackEval(packet.New(map[string]any{"protocol": 6, "dstport": 80}))
	assert.True(t, ok)
	assert.Len(t, tr.Children, 2)
}
