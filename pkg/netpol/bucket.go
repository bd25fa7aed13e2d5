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
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meridian-sdn/meridian/pkg/metrics"
	"github.com/meridian-sdn/meridian/pkg/packet"
	"github.com/meridian-sdn/meridian/pkg/private/periodic"
)

// ListenerID identifies a registered listener for later removal.
type ListenerID int64

// listenerSet is the shared registration machinery of the buckets.
// Notification snapshots the listeners outside the lock so a callback may
// register or unregister without deadlocking.
type listenerSet[T any] struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[ListenerID]func(T)
}

func (s *listenerSet[T]) register(fn func(T)) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[ListenerID]func(T))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return id
}

func (s *listenerSet[T]) unregister(id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

func (s *listenerSet[T]) notify(v T) {
	s.mu.Lock()
	snapshot := make([]func(T), 0, len(s.listeners))
	for _, fn := range s.listeners {
		snapshot = append(snapshot, fn)
	}
	s.mu.Unlock()
	for _, fn := range snapshot {
		fn(v)
	}
}

var _ Policy = (*FwdBucket)(nil)

// FwdBucket diverts packets to registered listeners instead of forwarding
// them. Evaluation always yields the empty multiset; from the algebra's
// point of view a bucket drops everything it sees.
type FwdBucket struct {
	netCell
	listeners listenerSet[packet.Packet]
	delivered metrics.Counter
}

// NewFwdBucket returns a listener bucket. The counter tracks deliveries
// and may be nil.
func NewFwdBucket(delivered metrics.Counter) *FwdBucket {
	return &FwdBucket{delivered: delivered}
}

// Register adds a callback invoked once per diverted packet.
func (b *FwdBucket) Register(fn func(packet.Packet)) ListenerID {
	return b.listeners.register(fn)
}

// Unregister removes a previously registered callback.
func (b *FwdBucket) Unregister(id ListenerID) {
	b.listeners.unregister(id)
}

func (b *FwdBucket) SetNetwork(n Network) { b.swap(n) }

func (b *FwdBucket) Eval(pkt packet.Packet) Multiset {
	metrics.CounterInc(b.delivered)
	b.listeners.notify(pkt)
	return NewMultiset()
}

func (b *FwdBucket) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return b.Eval(pkt), trace(b)
}

func (b *FwdBucket) String() string { return "fwd-bucket" }

var _ Policy = (*PacketsBucket)(nil)

// PacketsBucket delivers at most limit packets per group to its listeners,
// where a group is the combination of the configured field values. Once a
// group exceeds its limit the bucket refines its admission predicate to
// exclude the group, so equivalent packets stop being delivered. With no
// configured fields the grouping combination is taken from each packet's
// available fields. A limit of zero or less never cuts off.
type PacketsBucket struct {
	netCell

	bucket *FwdBucket
	limit  int
	fields []string

	mu      sync.Mutex
	seen    map[string]int
	allowed Predicate
}

// NewPacketsBucket returns a bounded-repeat bucket grouping packets by the
// given fields.
func NewPacketsBucket(limit int, fields ...string) *PacketsBucket {
	return &PacketsBucket{
		bucket:  NewFwdBucket(nil),
		limit:   limit,
		fields:  fields,
		seen:    make(map[string]int),
		allowed: AllPackets,
	}
}

// Register adds a callback invoked per delivered packet.
func (b *PacketsBucket) Register(fn func(packet.Packet)) ListenerID {
	return b.bucket.Register(fn)
}

// Unregister removes a previously registered callback.
func (b *PacketsBucket) Unregister(id ListenerID) {
	b.bucket.Unregister(id)
}

func (b *PacketsBucket) SetNetwork(n Network) {
	if !b.swap(n) {
		return
	}
	b.bucket.SetNetwork(n)
	b.mu.Lock()
	allowed := b.allowed
	b.mu.Unlock()
	allowed.SetNetwork(n)
}

func (b *PacketsBucket) Eval(pkt packet.Packet) Multiset {
	b.mu.Lock()
	allowed := b.allowed
	b.mu.Unlock()
	if !allowed.Eval(pkt) {
		return NewMultiset()
	}

	group := b.groupMatch(pkt)
	key := group.key()

	b.mu.Lock()
	b.seen[key]++
	exceeded := b.limit > 0 && b.seen[key] > b.limit
	if exceeded {
		refined := NewIntersect(NewNegate(group), b.allowed)
		b.allowed = refined
		b.mu.Unlock()
		refined.SetNetwork(b.Network())
		return NewMultiset()
	}
	b.mu.Unlock()

	return b.bucket.Eval(pkt)
}

// groupMatch builds the match identifying the packet's group. The
// combination uses the configured fields, with absent fields required to
// stay absent, or the packet's available fields when none are configured.
func (b *PacketsBucket) groupMatch(pkt packet.Packet) *Match {
	fields := b.fields
	if len(fields) == 0 {
		fields = pkt.AvailableFields()
	}
	literals := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := pkt.Get(f); ok {
			literals[f] = v
		} else {
			literals[f] = nil
		}
	}
	return MustMatch(literals)
}

func (b *PacketsBucket) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return b.Eval(pkt), trace(b)
}

func (b *PacketsBucket) String() string {
	return fmt.Sprintf("packets-bucket(limit=%d)", b.limit)
}

// Aggregator folds diverted packets into a running total.
type Aggregator interface {
	// Name is used in the report task's name and the String form.
	Name() string
	// Fold merges one packet into the accumulator.
	Fold(acc int64, pkt packet.Packet) int64
}

// CountAggregator counts packets.
type CountAggregator struct{}

func (CountAggregator) Name() string { return "count" }

func (CountAggregator) Fold(acc int64, _ packet.Packet) int64 { return acc + 1 }

// SizeAggregator sums packet sizes, header plus payload bytes. Packets
// without size fields contribute zero.
type SizeAggregator struct{}

func (SizeAggregator) Name() string { return "size" }

func (SizeAggregator) Fold(acc int64, pkt packet.Packet) int64 {
	header, _ := pkt.Int(packet.FieldHeaderLen)
	payload, _ := pkt.Int(packet.FieldPayloadLen)
	return acc + int64(header) + int64(payload)
}

// GroupAggregate is the aggregate of one group, identified by the match on
// the grouping field values.
type GroupAggregate struct {
	Match *Match
	Value int64
}

// Aggregate is one report: the overall total plus the per-group
// breakdown in deterministic order.
type Aggregate struct {
	Total  int64
	Groups []GroupAggregate
}

var _ Policy = (*AggregateBucket)(nil)
var _ periodic.Task = (*AggregateBucket)(nil)

// AggregateBucket folds diverted packets into per-group running
// aggregates and reports them to its listeners, either on demand or on a
// periodic schedule. Groups are identified by the combination of the
// grouping fields that are available on each packet. Without grouping
// fields only the overall total is tracked and reports carry no groups.
type AggregateBucket struct {
	netCell

	agg     Aggregator
	groupBy []string

	mu     sync.Mutex
	total  int64
	groups map[string]*groupEntry

	listeners listenerSet[Aggregate]
	runner    *periodic.Runner
}

type groupEntry struct {
	match *Match
	value int64
}

// NewAggregateBucket returns an aggregating bucket. A positive interval
// starts a periodic report task; otherwise reports only happen on demand.
func NewAggregateBucket(agg Aggregator, interval time.Duration, groupBy ...string) *AggregateBucket {
	b := &AggregateBucket{
		agg:     agg,
		groupBy: groupBy,
		groups:  make(map[string]*groupEntry),
	}
	if interval > 0 {
		b.runner = periodic.Start(b, interval, interval)
	}
	return b
}

// NewCountBucket returns an aggregating bucket counting packets.
func NewCountBucket(interval time.Duration, groupBy ...string) *AggregateBucket {
	return NewAggregateBucket(CountAggregator{}, interval, groupBy...)
}

// NewSizeBucket returns an aggregating bucket summing packet sizes.
func NewSizeBucket(interval time.Duration, groupBy ...string) *AggregateBucket {
	return NewAggregateBucket(SizeAggregator{}, interval, groupBy...)
}

// Register adds a callback invoked per report.
func (b *AggregateBucket) Register(fn func(Aggregate)) ListenerID {
	return b.listeners.register(fn)
}

// Unregister removes a previously registered callback.
func (b *AggregateBucket) Unregister(id ListenerID) {
	b.listeners.unregister(id)
}

// Name implements periodic.Task.
func (b *AggregateBucket) Name() string {
	return "netpol_aggregate_bucket_" + b.agg.Name()
}

// Run implements periodic.Task by issuing one report.
func (b *AggregateBucket) Run(context.Context) {
	b.Report()
}

// Report snapshots the current aggregates and notifies the listeners.
func (b *AggregateBucket) Report() Aggregate {
	snapshot := b.snapshot()
	b.listeners.notify(snapshot)
	return snapshot
}

func (b *AggregateBucket) snapshot() Aggregate {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.groups))
	for k := range b.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	groups := make([]GroupAggregate, 0, len(keys))
	for _, k := range keys {
		e := b.groups[k]
		groups = append(groups, GroupAggregate{Match: e.match, Value: e.value})
	}
	return Aggregate{Total: b.total, Groups: groups}
}

// Stop halts the periodic report task, waiting for an in-flight report.
func (b *AggregateBucket) Stop() {
	if b.runner != nil {
		b.runner.Stop()
	}
}

// TriggerReport schedules an immediate report on the periodic task, if
// one is running.
func (b *AggregateBucket) TriggerReport() {
	if b.runner != nil {
		b.runner.TriggerRun()
	}
}

func (b *AggregateBucket) SetNetwork(n Network) { b.swap(n) }

func (b *AggregateBucket) Eval(pkt packet.Packet) Multiset {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.groupBy) > 0 {
		group := b.groupMatch(pkt)
		key := group.key()
		e, ok := b.groups[key]
		if !ok {
			e = &groupEntry{match: group}
			b.groups[key] = e
		}
		e.value = b.agg.Fold(e.value, pkt)
	}
	b.total = b.agg.Fold(b.total, pkt)
	return NewMultiset()
}

// groupMatch identifies the packet's group by the grouping fields actually
// available on the packet. Grouping fields the packet lacks are left out
// of the combination, so packets differing only in absent fields share a
// group.
func (b *AggregateBucket) groupMatch(pkt packet.Packet) *Match {
	literals := make(map[string]any, len(b.groupBy))
	for _, f := range b.groupBy {
		if v, ok := pkt.Get(f); ok {
			literals[f] = v
		}
	}
	return MustMatch(literals)
}

func (b *AggregateBucket) TrackEval(pkt packet.Packet) (Multiset, *Trace) {
	return b.Eval(pkt), trace(b)
}

func (b *AggregateBucket) String() string {
	return fmt.Sprintf("aggregate-bucket(%s)", b.agg.Name())
}
