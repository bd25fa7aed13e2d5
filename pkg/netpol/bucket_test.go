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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sdn/meridian/pkg/metrics"
	"github.com/meridian-sdn/meridian/pkg/netpol"
	"github.com/meridian-sdn/meridian/pkg/packet"
)

func TestFwdBucket(t *testing.T) {
	delivered := metrics.NewTestCounter()
	bucket := netpol.NewFwdBucket(delivered)

	var got []packet.Packet
	id := bucket.Register(func(p packet.Packet) { got = append(got, p) })

	pkt := packet.New(map[string]any{"srcport": 1})
	out := bucket.Eval(pkt)
	assert.True(t, out.Empty())
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(pkt))
	assert.Equal(t, float64(1), metrics.CounterValue(delivered))

	bucket.Unregister(id)
	bucket.Eval(pkt)
	assert.Len(t, got, 1)
	assert.Equal(t, float64(2), metrics.CounterValue(delivered))
}

func TestFwdBucketNilCounter(t *testing.T) {
	bucket := netpol.NewFwdBucket(nil)
	assert.True(t, bucket.Eval(packet.New(map[string]any{"srcport": 1})).Empty())
}

func TestPacketsBucketLimit(t *testing.T) {
	bucket := netpol.NewPacketsBucket(2)

	var got []packet.Packet
	bucket.Register(func(p packet.Packet) { got = append(got, p) })

	pkt := packet.New(map[string]any{"srcport": 1})
	for i := 0; i < 3; i++ {
		assert.True(t, bucket.Eval(pkt).Empty())
	}
	// Only the first two equivalent packets reach the listener.
	assert.Len(t, got, 2)

	// A different packet is a fresh group.
	other := packet.New(map[string]any{"srcport": 2})
	bucket.Eval(other)
	require.Len(t, got, 3)
	assert.True(t, got[2].Equal(other))
}

func TestPacketsBucketGroupFields(t *testing.T) {
	bucket := netpol.NewPacketsBucket(1, "srcport")

	var got []packet.Packet
	bucket.Register(func(p packet.Packet) { got = append(got, p) })

	// Same srcport, different dstport: one group.
	bucket.Eval(packet.New(map[string]any{"srcport": 1, "dstport": 80}))
	bucket.Eval(packet.New(map[string]any{"srcport": 1, "dstport": 443}))
	assert.Len(t, got, 1)

	// A packet without the grouping field forms its own group.
	bucket.Eval(packet.New(map[string]any{"dstport": 80}))
	assert.Len(t, got, 2)
}

func TestPacketsBucketUnlimited(t *testing.T) {
	bucket := netpol.NewPacketsBucket(0)

	count := 0
	bucket.Register(func(packet.Packet) { count++ })

	pkt := packet.New(map[string]any{"srcport": 1})
	for i := 0; i < 5; i++ {
		bucket.Eval(pkt)
	}
	assert.Equal(t, 5, count)
}

func TestAggregateCountBucket(t *testing.T) {
	bucket := netpol.NewCountBucket(0, "srcport")

	bucket.Eval(packet.New(map[string]any{"srcport": 1, "dstport": 80}))
	bucket.Eval(packet.New(map[string]any{"srcport": 1, "dstport": 443}))
	bucket.Eval(packet.New(map[string]any{"srcport": 2}))

	agg := bucket.Report()
	assert.Equal(t, int64(3), agg.Total)
	require.Len(t, agg.Groups, 2)
	assert.Equal(t, int64(2), agg.Groups[0].Value)
	assert.Equal(t, int64(1), agg.Groups[1].Value)
}

func TestAggregateSizeBucket(t *testing.T) {
	bucket := netpol.NewSizeBucket(0)

	bucket.Eval(packet.New(map[string]any{
		"srcport":     1,
		"header_len":  14,
		"payload_len": 20,
	}))
	// Packets without size fields contribute zero.
	bucket.Eval(packet.New(map[string]any{"srcport": 1}))

	agg := bucket.Report()
	assert.Equal(t, int64(34), agg.Total)
	// Without grouping fields the report is a bare total.
	assert.Empty(t, agg.Groups)
}

func TestAggregateBucketGroupsByAvailableFields(t *testing.T) {
	bucket := netpol.NewCountBucket(0, "srcport", "vlan")

	// Grouping fields missing on the packet are left out of the group
	// identity instead of splitting it.
	bucket.Eval(packet.New(map[string]any{"srcport": 1}))
	bucket.Eval(packet.New(map[string]any{"srcport": 1, "dstport": 80}))
	bucket.Eval(packet.New(map[string]any{"srcport": 1, "vlan": 10}))

	agg := bucket.Report()
	assert.Equal(t, int64(3), agg.Total)
	assert.Len(t, agg.Groups, 2)
}

func TestAggregateBucketPeriodicReport(t *testing.T) {
	bucket := netpol.NewCountBucket(time.Hour)
	defer bucket.Stop()

	reports := make(chan netpol.Aggregate, 1)
	bucket.Register(func(a netpol.Aggregate) {
		select {
		case reports <- a:
		default:
		}
	})

	bucket.Eval(packet.New(map[string]any{"srcport": 1}))
	bucket.TriggerReport()

	select {
	case agg := <-reports:
		assert.Equal(t, int64(1), agg.Total)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for report")
	}
}

func TestBucketListenerReentrancy(t *testing.T) {
	// A listener may unregister itself during notification.
	bucket := netpol.NewFwdBucket(nil)
	var id netpol.ListenerID
	count := 0
	id = bucket.Register(func(packet.Packet) {
		count++
		bucket.Unregister(id)
	})

	pkt := packet.New(map[string]any{"srcport": 1})
	bucket.Eval(pkt)
	bucket.Eval(pkt)
	assert.Equal(t, 1, count)
}
