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
)

func TestExactPattern(t *testing.T) {
	p, err := netpol.ExactPattern(80)
	require.NoError(t, err)
	assert.True(t, p.Match(80))
	assert.False(t, p.Match(443))
	assert.False(t, p.Match("80"))
}

func TestPrefixPattern(t *testing.T) {
	testCases := map[string]struct {
		literal   any
		assertErr assert.ErrorAssertionFunc
		matches   []string
		rejects   []string
	}{
		"cidr string": {
			literal:   "10.0.0.0/8",
			assertErr: assert.NoError,
			matches:   []string{"10.0.0.1", "10.255.255.255"},
			rejects:   []string{"11.0.0.1"},
		},
		"plain address string": {
			literal:   "192.168.1.1",
			assertErr: assert.NoError,
			matches:   []string{"192.168.1.1"},
			rejects:   []string{"192.168.1.2"},
		},
		"addr literal": {
			literal:   netip.MustParseAddr("192.168.1.1"),
			assertErr: assert.NoError,
			matches:   []string{"192.168.1.1"},
			rejects:   []string{"192.168.1.2"},
		},
		"unmasked prefix": {
			literal:   netip.MustParsePrefix("10.1.2.3/16"),
			assertErr: assert.NoError,
			matches:   []string{"10.1.0.1"},
			rejects:   []string{"10.2.0.1"},
		},
		"ipv6 literal": {
			literal:   "2001:db8::/32",
			assertErr: assert.Error,
		},
		"garbage string": {
			literal:   "not-an-address",
			assertErr: assert.Error,
		},
		"unsupported type": {
			literal:   3.14,
			assertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			p, err := netpol.PrefixPattern(tc.literal)
			tc.assertErr(t, err)
			if err != nil {
				return
			}
			for _, a := range tc.matches {
				assert.True(t, p.Match(netip.MustParseAddr(a)), a)
			}
			for _, a := range tc.rejects {
				assert.False(t, p.Match(netip.MustParseAddr(a)), a)
			}
		})
	}
}

func TestPrefixPatternNonAddrValue(t *testing.T) {
	p, err := netpol.PrefixPattern("10.0.0.0/8")
	require.NoError(t, err)
	assert.False(t, p.Match("10.0.0.1"))
	assert.False(t, p.Match(10))
}

func TestFieldPatternRegistry(t *testing.T) {
	// srcip and dstip are registered as prefix fields at init time.
	p, err := netpol.FieldPattern("srcip")("10.0.0.0/24")
	require.NoError(t, err)
	assert.True(t, p.Match(netip.MustParseAddr("10.0.0.7")))

	// Unregistered fields fall back to exact matching.
	p, err = netpol.FieldPattern("vlan")(42)
	require.NoError(t, err)
	assert.True(t, p.Match(42))
	assert.False(t, p.Match(43))
}
