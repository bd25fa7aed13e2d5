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
	"net"
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sdn/meridian/pkg/packet"
)

func mkFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 0, 0, 2),
		Protocol: layers.IPProtocolUDP,
		TOS:      8,
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp,
		gopacket.Payload(payload)))
	return buf.Bytes()
}

func TestFromEthernet(t *testing.T) {
	payload := []byte("hello")
	raw := mkFrame(t, payload)
	p, err := packet.FromEthernet(raw)
	require.NoError(t, err)

	src, _ := p.Get(packet.FieldSrcIP)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), src)
	dst, _ := p.Get(packet.FieldDstIP)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), dst)
	proto, _ := p.Int(packet.FieldProtocol)
	assert.Equal(t, int(layers.IPProtocolUDP), proto)
	tos, _ := p.Int(packet.FieldToS)
	assert.Equal(t, 8, tos)
	srcPort, _ := p.Int(packet.FieldSrcPort)
	assert.Equal(t, 5000, srcPort)
	dstPort, _ := p.Int(packet.FieldDstPort)
	assert.Equal(t, 53, dstPort)
	srcMAC, _ := p.Get(packet.FieldSrcMAC)
	assert.Equal(t, packet.MustParseMAC("00:11:22:33:44:55"), srcMAC)

	payloadLen, _ := p.Int(packet.FieldPayloadLen)
	assert.Equal(t, len(payload), payloadLen)
	headerLen, _ := p.Int(packet.FieldHeaderLen)
	assert.Equal(t, len(raw)-len(payload), headerLen)
}

func TestFromEthernetGarbage(t *testing.T) {
	_, err := packet.FromEthernet([]byte{0x01, 0x02})
	assert.Error(t, err)
}
