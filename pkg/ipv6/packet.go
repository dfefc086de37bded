// Package ipv6 implements IPv6 header, extension header chain, and
// fragment header parsing and serialization (RFC 8200).
package ipv6

import (
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

const (
	// IPv6Version is the version number for IPv6.
	IPv6Version = 6

	// HeaderLength is the fixed IPv6 base header length (40 bytes).
	HeaderLength = 40

	// MaxPacketSize is the maximum IPv6 packet size without jumbogram (64KB).
	MaxPacketSize = 65535

	// DefaultHopLimit is the default Hop Limit value.
	DefaultHopLimit = 64
)

// Packet is a fully decoded IPv6 packet: the base header, the walked
// extension header chain, and the final upper-layer payload.
type Packet struct {
	Version      uint8
	TrafficClass uint8
	FlowLabel    common.FlowLabel20
	NextHeader   common.Protocol // protocol of the first extension header, or of Payload if none
	HopLimit     uint8
	Source       common.IPv6Address
	Destination  common.IPv6Address

	Extensions []Extension

	// PayloadProtocol is the protocol number of Payload, after walking
	// any extension headers.
	PayloadProtocol common.Protocol
	Payload         []byte
}

// Parse decodes a complete IPv6 packet: the 40-byte base header, the
// extension header chain, and the upper-layer payload.
func Parse(data []byte) (*Packet, error) {
	sl, extData, _, _, err := FromSlice(data, false)
	if err != nil {
		return nil, err
	}

	exts, payloadProto, payload, err := WalkExtensions(sl.NextHeader(), extData)
	if err != nil {
		return nil, err
	}

	return &Packet{
		Version:         sl.Version(),
		TrafficClass:    sl.TrafficClass(),
		FlowLabel:       sl.FlowLabel(),
		NextHeader:      sl.NextHeader(),
		HopLimit:        sl.HopLimit(),
		Source:          sl.Source(),
		Destination:     sl.Destination(),
		Extensions:      exts,
		PayloadProtocol: payloadProto,
		Payload:         payload,
	}, nil
}

// Serialize concatenates the base header, every extension header, and the
// payload into a complete wire-format packet.
func (p *Packet) Serialize() ([]byte, error) {
	var extBytes []byte
	for _, ext := range p.Extensions {
		extBytes = append(extBytes, ext.toBytes()...)
	}

	payloadLen := len(extBytes) + len(p.Payload)
	if payloadLen > MaxPacketSize {
		return nil, fmt.Errorf("ipv6: payload too large: %d bytes (maximum %d)", payloadLen, MaxPacketSize)
	}

	nextHeader := p.PayloadProtocol
	if len(p.Extensions) > 0 {
		nextHeader = headerProtocolOf(p.Extensions[0])
	}

	h := Header{
		TrafficClass:  p.TrafficClass,
		FlowLabel:     p.FlowLabel,
		PayloadLength: uint16(payloadLen),
		NextHeader:    nextHeader,
		HopLimit:      p.HopLimit,
		Source:        p.Source,
		Destination:   p.Destination,
	}

	buf := make([]byte, 0, HeaderLength+payloadLen)
	buf = append(buf, h.ToBytes()...)
	buf = append(buf, extBytes...)
	buf = append(buf, p.Payload...)
	return buf, nil
}

func (ext Extension) toBytes() []byte {
	switch ext.Kind {
	case ExtHopByHop:
		return ext.HopByHop.ToBytes()
	case ExtRouting:
		return ext.Routing.ToBytes()
	case ExtDestinationOptions:
		return ext.DestinationOptions.ToBytes()
	case ExtFragment:
		return ext.Fragment.ToBytes()
	case ExtAuth:
		return ext.Auth.ToBytes()
	case ExtMobility:
		return ext.Mobility.ToBytes()
	case ExtHIP:
		return ext.HIP.ToBytes()
	case ExtSHIM6:
		return ext.SHIM6.ToBytes()
	default:
		return nil
	}
}

func headerProtocolOf(ext Extension) common.Protocol {
	switch ext.Kind {
	case ExtHopByHop:
		return common.ProtocolHopByHop
	case ExtRouting:
		return common.ProtocolRouting
	case ExtDestinationOptions:
		return common.ProtocolDstOpts
	case ExtFragment:
		return common.ProtocolFragment
	case ExtAuth:
		return common.ProtocolAuth
	case ExtMobility:
		return common.ProtocolMobility
	case ExtHIP:
		return common.ProtocolHIP
	case ExtSHIM6:
		return common.ProtocolShim6
	default:
		return 0
	}
}

// DecrementHopLimit decrements the hop limit and returns true if the packet is still alive.
func (p *Packet) DecrementHopLimit() bool {
	if p.HopLimit == 0 {
		return false
	}
	p.HopLimit--
	return p.HopLimit > 0
}

// String returns a human-readable representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("IPv6{%s -> %s, Proto=%s, HopLimit=%d, PayloadLen=%d}",
		p.Source, p.Destination, p.PayloadProtocol, p.HopLimit, len(p.Payload))
}

// NewPacket creates a new IPv6 packet with default values and no
// extension headers.
func NewPacket(src, dst common.IPv6Address, protocol common.Protocol, payload []byte) *Packet {
	return &Packet{
		Version:         IPv6Version,
		NextHeader:      protocol,
		HopLimit:        DefaultHopLimit,
		Source:          src,
		Destination:     dst,
		PayloadProtocol: protocol,
		Payload:         payload,
	}
}
