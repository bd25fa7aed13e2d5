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

// Package packet implements the field-stack packet model consumed by the
// policy algebra. Every header field holds a stack of values; the top of
// the stack is the current value. Packets are immutable: every edit
// returns a new packet, the receiver is never changed.
//
// Field values are opaque comparable tokens (int, string, netip.Addr, MAC).
// Two packets are equal when they hold the same fields with the same value
// stacks; equality is by value, independent of identity.
package packet

import (
	"fmt"
	"sort"
	"strings"
)

// Packet is an immutable mapping from header field name to a stack of
// values. The zero value is an empty packet.
type Packet struct {
	fields map[string][]any
}

// New returns a packet with a single value pushed on each given field.
func New(fields map[string]any) Packet {
	m := make(map[string][]any, len(fields))
	for k, v := range fields {
		m[k] = []any{v}
	}
	return Packet{fields: m}
}

// clone copies the field map. Stacks are shared; they are never mutated in
// place.
func (p Packet) clone() map[string][]any {
	m := make(map[string][]any, len(p.fields)+1)
	for k, v := range p.fields {
		m[k] = v
	}
	return m
}

// Get returns the current (top of stack) value of the field.
func (p Packet) Get(field string) (any, bool) {
	stack, ok := p.fields[field]
	if !ok || len(stack) == 0 {
		return nil, false
	}
	return stack[0], true
}

// Int returns the current value of the field as an int. The second return
// value is false if the field is absent or not integer valued.
func (p Packet) Int(field string) (int, bool) {
	v, ok := p.Get(field)
	if !ok {
		return 0, false
	}
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	default:
		return 0, false
	}
}

// GetStack returns a copy of the value stack of the field, top first.
func (p Packet) GetStack(field string) []any {
	stack := p.fields[field]
	if len(stack) == 0 {
		return nil
	}
	out := make([]any, len(stack))
	copy(out, stack)
	return out
}

// Has reports whether the field is present on the packet.
func (p Packet) Has(field string) bool {
	return len(p.fields[field]) > 0
}

// AvailableFields returns the sorted names of all present fields.
func (p Packet) AvailableFields() []string {
	out := make([]string, 0, len(p.fields))
	for k, stack := range p.fields {
		if len(stack) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Push returns a packet with the value pushed on the field's stack.
func (p Packet) Push(field string, v any) Packet {
	return p.PushMany(map[string]any{field: v})
}

// PushMany returns a packet with one value pushed per given field.
func (p Packet) PushMany(values map[string]any) Packet {
	if len(values) == 0 {
		return p
	}
	m := p.clone()
	for field, v := range values {
		old := m[field]
		stack := make([]any, 0, len(old)+1)
		stack = append(stack, v)
		stack = append(stack, old...)
		m[field] = stack
	}
	return Packet{fields: m}
}

// Pop returns a packet with the top value removed from each named field's
// stack. Fields absent from the packet are skipped. A field whose stack
// becomes empty is removed entirely.
func (p Packet) Pop(fields ...string) Packet {
	if len(fields) == 0 {
		return p
	}
	m := p.clone()
	for _, field := range fields {
		old := m[field]
		if len(old) == 0 {
			continue
		}
		if len(old) == 1 {
			delete(m, field)
			continue
		}
		m[field] = old[1:]
	}
	return Packet{fields: m}
}

// Modify returns a packet with the field's current value replaced, i.e. a
// pop followed by a push of the same field.
func (p Packet) Modify(field string, v any) Packet {
	return p.ModifyMany(map[string]any{field: v})
}

// ModifyMany replaces the current value of each given field.
func (p Packet) ModifyMany(values map[string]any) Packet {
	if len(values) == 0 {
		return p
	}
	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	return p.Pop(fields...).PushMany(values)
}

// Fingerprint returns a canonical string representation of the packet.
// Packets with equal field stacks have equal fingerprints; the multiset
// implementation keys on this. Each value is tagged with its dynamic type
// so values that format alike, such as int 1 and string "1", keep distinct
// fingerprints.
func (p Packet) Fingerprint() string {
	fields := p.AvailableFields()
	var b strings.Builder
	for i, field := range fields {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(field)
		b.WriteString("=[")
		for j, v := range p.fields[field] {
			if j != 0 {
				b.WriteByte(',')
			}
			writeTagged(&b, v)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// writeTagged writes a value prefixed by its dynamic type. Strings are
// quoted to keep embedded separators unambiguous.
func writeTagged(b *strings.Builder, v any) {
	switch s := v.(type) {
	case string:
		fmt.Fprintf(b, "string:%q", s)
	default:
		fmt.Fprintf(b, "%T:%v", v, v)
	}
}

// Equal reports whether both packets hold the same field stacks.
func (p Packet) Equal(o Packet) bool {
	return p.Fingerprint() == o.Fingerprint()
}

func (p Packet) String() string {
	fields := p.AvailableFields()
	var b strings.Builder
	b.WriteString("packet<")
	for i, field := range fields {
		if i != 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", field, p.fields[field])
	}
	b.WriteByte('>')
	return b.String()
}
