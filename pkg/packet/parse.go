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
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/meridian-sdn/meridian/pkg/private/serrors"
)

// Well known header field names populated by FromEthernet.
const (
	FieldSrcMAC     = "srcmac"
	FieldDstMAC     = "dstmac"
	FieldEthType    = "ethtype"
	FieldSrcIP      = "srcip"
	FieldDstIP      = "dstip"
	FieldProtocol   = "protocol"
	FieldToS        = "tos"
	FieldSrcPort    = "srcport"
	FieldDstPort    = "dstport"
	FieldHeaderLen  = "header_len"
	FieldPayloadLen = "payload_len"
)

// FromEthernet decodes a raw Ethernet frame into a field-stack packet.
// Location fields (switch, inport, outport) are the caller's business; this
// only extracts header fields. Layers above UDP/TCP are treated as payload.
func FromEthernet(data []byte) (Packet, error) {
	decoded := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	if errLayer := decoded.ErrorLayer(); errLayer != nil {
		return Packet{}, serrors.Wrap("decoding ethernet frame", errLayer.Error())
	}
	eth, ok := decoded.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return Packet{}, serrors.New("frame has no ethernet layer")
	}

	fields := map[string]any{
		FieldSrcMAC:  macValue(eth.SrcMAC),
		FieldDstMAC:  macValue(eth.DstMAC),
		FieldEthType: int(eth.EthernetType),
	}
	if ip, ok := decoded.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		if src, valid := netip.AddrFromSlice(ip.SrcIP.To4()); valid {
			fields[FieldSrcIP] = src
		}
		if dst, valid := netip.AddrFromSlice(ip.DstIP.To4()); valid {
			fields[FieldDstIP] = dst
		}
		fields[FieldProtocol] = int(ip.Protocol)
		fields[FieldToS] = int(ip.TOS)
	}
	if tcp, ok := decoded.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		fields[FieldSrcPort] = int(tcp.SrcPort)
		fields[FieldDstPort] = int(tcp.DstPort)
	} else if udp, ok := decoded.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		fields[FieldSrcPort] = int(udp.SrcPort)
		fields[FieldDstPort] = int(udp.DstPort)
	}

	payloadLen := 0
	if app := decoded.ApplicationLayer(); app != nil {
		payloadLen = len(app.Payload())
	}
	fields[FieldHeaderLen] = len(data) - payloadLen
	fields[FieldPayloadLen] = payloadLen
	return New(fields), nil
}

func macValue(hw []byte) MAC {
	var m MAC
	copy(m[:], hw)
	return m
}
