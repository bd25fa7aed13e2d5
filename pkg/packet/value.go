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

package packet

import (
	"fmt"
	"net"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// MAC is a comparable 48-bit hardware address value.
type MAC [6]byte

// ParseMAC parses a textual hardware address into a MAC value.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, serrors.Wrap("parsing hardware address", err, "addr", s)
	}
	if len(hw) != 6 {
		return MAC{}, serrors.New("hardware address is not 48 bit", "addr", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// MustParseMAC is like ParseMAC but panics on malformed input.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(fmt.Sprintf("parsing %q: %v", s, err))
	}
	return m
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}
