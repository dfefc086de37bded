// Package udp implements the User Datagram Protocol (UDP) as defined in RFC 768.
package udp

import (
	"encoding/binary"
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

const (
	// HeaderLength is the UDP header length (8 bytes).
	HeaderLength = 8

	// MinPacketSize is the minimum UDP packet size (header only).
	MinPacketSize = HeaderLength

	// MaxPacketSize is the maximum UDP packet size (64KB - IP header).
	MaxPacketSize = 65535 - 20 // Max IP packet - min IP header
)

// Packet represents a UDP packet.
type Packet struct {
	// Header fields
	SourcePort      uint16 // Source port number
	DestinationPort uint16 // Destination port number
	Length          uint16 // Length of header + data (in bytes)
	Checksum        uint16 // Checksum (optional in IPv4, mandatory in IPv6)

	// Payload
	Data []byte // Packet data
}

// Slice is a zero-copy view over a UDP header.
type Slice struct {
	data []byte
}

// FromSlice validates and wraps the 8-byte UDP header at the front of
// data. In strict mode (lax=false), Length must be consistent with the
// available bytes and nonzero. In lax mode, a zero Length is tolerated
// and the payload is taken to be everything remaining in data — some
// stacks (and RFC 2675 IPv6 jumbograms, where the real length lives in
// the IPv6 Jumbo Payload option) leave Length unset, relying on the
// carrying layer to bound the datagram instead (§4.14, §9 open question).
func FromSlice(data []byte, lax bool) (sl Slice, payload []byte, rest []byte, err error) {
	if len(data) < HeaderLength {
		return Slice{}, nil, nil, &common.LengthError{
			RequiredLen: HeaderLength,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerUDPHeader,
		}
	}

	sl = Slice{data: data[:HeaderLength]}
	length := int(sl.Length())

	if length == 0 {
		if !lax {
			return Slice{}, nil, nil, &common.ContentError{
				Layer:   common.LayerUDPHeader,
				Message: "length field is zero",
			}
		}
		return sl, data[HeaderLength:], nil, nil
	}

	if length < HeaderLength {
		return Slice{}, nil, nil, &common.ContentError{
			Layer:   common.LayerUDPHeader,
			Message: fmt.Sprintf("length %d is smaller than the header itself", length),
		}
	}

	if length > len(data) {
		return Slice{}, nil, nil, &common.LengthError{
			RequiredLen: length,
			Len:         len(data),
			LenSource:   common.LenSourceUDPHeaderLen,
			Layer:       common.LayerUDPPayload,
		}
	}

	return sl, data[HeaderLength:length], data[length:], nil
}

func (s Slice) SourcePort() uint16      { return binary.BigEndian.Uint16(s.data[0:2]) }
func (s Slice) DestinationPort() uint16 { return binary.BigEndian.Uint16(s.data[2:4]) }
func (s Slice) Length() uint16          { return binary.BigEndian.Uint16(s.data[4:6]) }
func (s Slice) Checksum() uint16        { return binary.BigEndian.Uint16(s.data[6:8]) }
func (s Slice) HeaderBytes() []byte     { return s.data }

// Parse parses a UDP packet from raw bytes in strict mode: Length must be
// nonzero and consistent with the available bytes.
func Parse(data []byte) (*Packet, error) {
	sl, payload, _, err := FromSlice(data, false)
	if err != nil {
		return nil, err
	}
	return toPacket(sl, payload), nil
}

// ParseLax parses a UDP packet, tolerating a zero Length field by taking
// the rest of data as the payload (§4.14).
func ParseLax(data []byte) (*Packet, error) {
	sl, payload, _, err := FromSlice(data, true)
	if err != nil {
		return nil, err
	}
	return toPacket(sl, payload), nil
}

func toPacket(sl Slice, payload []byte) *Packet {
	pkt := &Packet{
		SourcePort:      sl.SourcePort(),
		DestinationPort: sl.DestinationPort(),
		Length:          sl.Length(),
		Checksum:        sl.Checksum(),
	}
	if len(payload) > 0 {
		pkt.Data = append([]byte(nil), payload...)
	}
	return pkt
}

// Serialize converts the UDP packet to bytes.
// Note: This does NOT calculate the checksum. Use CalculateChecksum separately.
func (p *Packet) Serialize() ([]byte, error) {
	// Calculate length
	length := HeaderLength + len(p.Data)
	if length > MaxPacketSize {
		return nil, fmt.Errorf("UDP packet too large: %d bytes (maximum %d)", length, MaxPacketSize)
	}
	p.Length = uint16(length)

	// Allocate buffer
	buf := make([]byte, length)

	// Set source and destination ports
	binary.BigEndian.PutUint16(buf[0:2], p.SourcePort)
	binary.BigEndian.PutUint16(buf[2:4], p.DestinationPort)

	// Set length
	binary.BigEndian.PutUint16(buf[4:6], p.Length)

	// Set checksum (caller should set this using CalculateChecksum)
	binary.BigEndian.PutUint16(buf[6:8], p.Checksum)

	// Copy data
	if len(p.Data) > 0 {
		copy(buf[HeaderLength:], p.Data)
	}

	return buf, nil
}

// CalculateChecksum calculates the UDP checksum over an IPv4 pseudo-header.
func (p *Packet) CalculateChecksum(srcIP, dstIP common.IPv4Address) (uint16, error) {
	udpData, err := p.Serialize()
	if err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint16(udpData[6:8], 0)

	pseudoHeader := common.PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		Protocol:        common.ProtocolUDP,
		Length:          p.Length,
	}

	checksum := common.CalculateChecksumWithPseudoHeader(pseudoHeader, udpData)

	// UDP checksum of 0 means no checksum, so if the calculated checksum is 0,
	// we should use 0xFFFF instead (per RFC 768)
	if checksum == 0 {
		checksum = 0xFFFF
	}

	return checksum, nil
}

// CalculateChecksumIPv6 calculates the UDP checksum over an IPv6
// pseudo-header, where a checksum is mandatory (RFC 8200 §8.1).
func (p *Packet) CalculateChecksumIPv6(srcIP, dstIP common.IPv6Address) (uint16, error) {
	udpData, err := p.Serialize()
	if err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint16(udpData[6:8], 0)

	pseudoHeader := common.IPv6PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		UpperLayerLen:   uint32(p.Length),
		NextHeader:      common.ProtocolUDP,
	}

	checksum := common.CalculateChecksumWithIPv6PseudoHeader(pseudoHeader, udpData)
	if checksum == 0 {
		checksum = 0xFFFF
	}
	return checksum, nil
}

// VerifyChecksum verifies the UDP checksum with the given IPv4 pseudo-header.
func (p *Packet) VerifyChecksum(srcIP, dstIP common.IPv4Address) bool {
	// If checksum is 0, it means no checksum (which is allowed in IPv4)
	if p.Checksum == 0 {
		return true
	}

	udpData, err := p.Serialize()
	if err != nil {
		return false
	}

	pseudoHeader := common.PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		Protocol:        common.ProtocolUDP,
		Length:          p.Length,
	}

	return common.VerifyChecksum(append(pseudoHeader.Bytes(), udpData...))
}

// VerifyChecksumIPv6 verifies the UDP checksum with the given IPv6
// pseudo-header.
func (p *Packet) VerifyChecksumIPv6(srcIP, dstIP common.IPv6Address) bool {
	udpData, err := p.Serialize()
	if err != nil {
		return false
	}

	pseudoHeader := common.IPv6PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		UpperLayerLen:   uint32(p.Length),
		NextHeader:      common.ProtocolUDP,
	}

	return common.VerifyChecksum(append(pseudoHeader.Bytes(), udpData...))
}

// String returns a human-readable representation of the UDP packet.
func (p *Packet) String() string {
	return fmt.Sprintf("UDP{SrcPort=%d, DstPort=%d, Len=%d, DataLen=%d}",
		p.SourcePort, p.DestinationPort, p.Length, len(p.Data))
}

// NewPacket creates a new UDP packet with the given parameters.
func NewPacket(srcPort, dstPort uint16, data []byte) *Packet {
	return &Packet{
		SourcePort:      srcPort,
		DestinationPort: dstPort,
		Length:          uint16(HeaderLength + len(data)),
		Checksum:        0, // Will be calculated later
		Data:            data,
	}
}
