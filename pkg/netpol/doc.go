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

// Package netpol implements the compositional policy language of the
// controller: predicates that classify packets and policies that map one
// packet to a multiset of output packets.
//
// Predicates are boolean classifiers. The supported variants are AllPackets,
// NoPackets, Match (a set of per-field patterns), IngressNetwork,
// EgressNetwork, Union, Intersect, Negate and Difference. Match consults
// the field pattern registry to decide how a field literal is matched;
// srcip and dstip default to IPv4 prefix matching, everything else to
// exact matching.
//
// Policies transform packets. Passthrough and Drop are the units of
// sequential and parallel composition. Push, Pop, Modify, Copy and Move
// edit the per-field value stacks of a packet; Fwd and Flood set the
// outport. Restrict, Remove and If gate a policy behind a predicate.
// Parallel evaluates all children on the same input and sums the
// multiplicities of equal outputs; Sequential feeds each intermediate
// packet into the next stage and multiplies multiplicities.
//
// Every predicate and policy node receives network state through
// SetNetwork. Delivering the same state twice is a no-op, which makes
// re-propagation through shared subtrees and recursive structures safe.
// Nodes that depend on topology (Flood, the location predicates) cache
// what they derive from the state and only recompute when the state
// actually changed.
//
// The dynamic layer (MutablePolicy, NetworkDerivedPolicy, DynamicPolicy,
// Recurse) supports policies whose behavior is replaced at runtime. Query
// buckets (FwdBucket, PacketsBucket, the aggregate buckets) observe
// traffic without contributing to the forwarding multiset.
//
// Predicates and static policies support JSON marshaling and unmarshaling.
// Due to the custom type-tagged formatting, interface values are encoded
// as a single-entry object keyed by the concrete type name. Dynamic
// policies and buckets are not marshalable.
package netpol
