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

package packet_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sdn/meridian/pkg/packet"
)

func TestPushPop(t *testing.T) {
	p := packet.New(map[string]any{"switch": 1, "inport": 2})

	q := p.Push("vlan", 100)
	assert.False(t, p.Has("vlan"), "original packet must not change")
	v, ok := q.Get("vlan")
	require.True(t, ok)
	assert.Equal(t, 100, v)

	q = q.Push("vlan", 200)
	v, _ = q.Get("vlan")
	assert.Equal(t, 200, v)
	assert.Equal(t, []any{200, 100}, q.GetStack("vlan"))

	q = q.Pop("vlan")
	v, _ = q.Get("vlan")
	assert.Equal(t, 100, v)
	q = q.Pop("vlan")
	assert.False(t, q.Has("vlan"))
}

func TestPopAbsentFieldIsSkipped(t *testing.T) {
	p := packet.New(map[string]any{"switch": 1})
	q := p.Pop("outport")
	assert.True(t, p.Equal(q))
}

func TestModify(t *testing.T) {
	p := packet.New(map[string]any{"outport": -1})
	q := p.Modify("outport", 3)
	assert.Equal(t, []any{3}, q.GetStack("outport"))
}

func TestAvailableFields(t *testing.T) {
	p := packet.New(map[string]any{"switch": 1, "inport": 2, "srcip": netip.MustParseAddr("10.0.0.1")})
	assert.Equal(t, []string{"inport", "srcip", "switch"}, p.AvailableFields())
}

func TestEqualIndependentOfConstructionOrder(t *testing.T) {
	a := packet.New(map[string]any{"switch": 1}).Push("inport", 2)
	b := packet.New(map[string]any{"inport": 2}).Push("switch", 1)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := b.Modify("inport", 3)
	assert.False(t, a.Equal(c))
}

func TestEqualDistinguishesValueTypes(t *testing.T) {
	// int 1 and string "1" format alike but are different values.
	a := packet.New(map[string]any{"tag": 1})
	b := packet.New(map[string]any{"tag": "1"})
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestInt(t *testing.T) {
	p := packet.New(map[string]any{"inport": 2, "name": "x"})
	v, ok := p.Int("inport")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = p.Int("name")
	assert.False(t, ok)
	_, ok = p.Int("absent")
	assert.False(t, ok)
}

func TestParseMAC(t *testing.T) {
	m, err := packet.ParseMAC("00:11:22:33:44:55")
	require.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", m.String())

	_, err = packet.ParseMAC("not-a-mac")
	assert.Error(t, err)
}
