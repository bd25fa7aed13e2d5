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

package topology

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// RawSwitch is the TOML representation of a switch.
type RawSwitch struct {
	ID    int   `toml:"id"`
	Ports []int `toml:"ports"`
}

// RawLink is the TOML representation of an inter-switch link.
type RawLink struct {
	A     int `toml:"a"`
	APort int `toml:"a_port"`
	B     int `toml:"b"`
	BPort int `toml:"b_port"`
}

// RawTopology is the TOML representation of a topology file.
type RawTopology struct {
	Switches []RawSwitch `toml:"switches"`
	Links    []RawLink   `toml:"links"`
}

// Topology builds the graph described by the raw representation.
func (r *RawTopology) Topology() (*Topology, error) {
	t := NewTopology()
	for _, sw := range r.Switches {
		t.AddSwitch(sw.ID, sw.Ports...)
	}
	for _, l := range r.Links {
		if err := t.AddLink(l.A, l.APort, l.B, l.BPort); err != nil {
			return nil, serrors.Wrap("adding link", err,
				"a", l.A, "b", l.B)
		}
	}
	return t, nil
}

// Load reads a TOML topology file and builds the graph.
func Load(path string) (*Topology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading topology file", err, "path", path)
	}
	var r RawTopology
	if err := toml.Unmarshal(raw, &r); err != nil {
		return nil, serrors.Wrap("parsing topology file", err, "path", path)
	}
	return r.Topology()
}
