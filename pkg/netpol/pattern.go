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
	"net/netip"
	"strings"
	"sync"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// Pattern decides whether a field value matches. Patterns are immutable;
// equality and the String representation are structural.
type Pattern interface {
	Match(v any) bool
	String() string
}

// PatternType constructs a Pattern from a field literal. Malformed
// literals are rejected here, at predicate construction time, never during
// evaluation.
type PatternType func(value any) (Pattern, error)

// ExactPattern matches by equality with the literal.
func ExactPattern(value any) (Pattern, error) {
	return exactPattern{value: value}, nil
}

type exactPattern struct {
	value any
}

func (p exactPattern) Match(v any) bool {
	return p.value == v
}

func (p exactPattern) String() string {
	return fmt.Sprintf("%v", p.value)
}

// PrefixPattern matches IPv4 addresses against a prefix. Accepted literals
// are netip.Addr (a /32), netip.Prefix, and strings in either address or
// CIDR notation.
func PrefixPattern(value any) (Pattern, error) {
	var prefix netip.Prefix
	switch v := value.(type) {
	case netip.Addr:
		if !v.Is4() {
			return nil, serrors.New("prefix pattern requires an IPv4 address", "addr", v)
		}
		prefix = netip.PrefixFrom(v, 32)
	case netip.Prefix:
		prefix = v
	case string:
		var err error
		if strings.Contains(v, "/") {
			prefix, err = netip.ParsePrefix(v)
		} else {
			var addr netip.Addr
			addr, err = netip.ParseAddr(v)
			if err == nil {
				prefix = netip.PrefixFrom(addr, 32)
			}
		}
		if err != nil {
			return nil, serrors.Wrap("parsing prefix literal", err, "literal", v)
		}
	default:
		return nil, serrors.New("invalid prefix pattern literal",
			"type", fmt.Sprintf("%T", value))
	}
	if !prefix.Addr().Is4() {
		return nil, serrors.New("prefix pattern requires an IPv4 prefix", "prefix", prefix)
	}
	if prefix.Bits() < 0 || prefix.Bits() > 32 {
		return nil, serrors.New("prefix length out of range", "bits", prefix.Bits())
	}
	return prefixPattern{prefix: prefix.Masked()}, nil
}

type prefixPattern struct {
	prefix netip.Prefix
}

func (p prefixPattern) Match(v any) bool {
	addr, ok := v.(netip.Addr)
	if !ok {
		return false
	}
	return p.prefix.Contains(addr)
}

func (p prefixPattern) String() string {
	if p.prefix.Bits() == 32 {
		return p.prefix.Addr().String()
	}
	return p.prefix.String()
}

// The field pattern registry maps a header field name to the pattern type
// used for its literals. It is process-wide configuration, set up once at
// startup; the last registration for a name wins.
var (
	registryMu sync.RWMutex
	registry   = map[string]PatternType{}
)

// RegisterField installs or overrides the pattern type for a field.
func RegisterField(field string, pt PatternType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[field] = pt
}

// FieldPattern returns the registered pattern type for the field, or
// ExactPattern if none is registered.
func FieldPattern(field string) PatternType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if pt, ok := registry[field]; ok {
		return pt
	}
	return ExactPattern
}

func init() {
	RegisterField("srcip", PrefixPattern)
	RegisterField("dstip", PrefixPattern)
}
