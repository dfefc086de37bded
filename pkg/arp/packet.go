// Package arp implements the Address Resolution Protocol (RFC 826).
//
// ARP's fixed 8-byte prefix names the hardware and protocol address
// spaces and their lengths; the four addresses that follow are sized
// accordingly, so this package does not assume Ethernet/IPv4 — it
// supports any hardware/protocol address size a sender declares. The
// Ethernet-over-IPv4 case is the overwhelmingly common one, so Packet
// layers a typed, convenience API for it on top of the generic Header.
package arp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// ARP packet format (RFC 826):
//  0                   1                   2                   3
//  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |        Hardware Type          |        Protocol Type          |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// | HW Addr Len | Proto Addr Len|          Operation            |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |         Sender Hardware Address (HW Addr Len bytes)          |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |         Sender Protocol Address (Proto Addr Len bytes)        |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |         Target Hardware Address (HW Addr Len bytes)           |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
// |         Target Protocol Address (Proto Addr Len bytes)        |
// +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

// FixedPrefixLen is the size of the hardware type/protocol type/address
// length/operation prefix that precedes the four variable-length
// addresses.
const FixedPrefixLen = 8

// PacketSize is the size of an ARP packet over Ethernet/IPv4 (28 bytes),
// the overwhelmingly common case.
const PacketSize = FixedPrefixLen + 2*6 + 2*4

// HardwareTypeEthernet represents Ethernet hardware type.
const HardwareTypeEthernet = 1

// ProtocolTypeIPv4 represents IPv4 protocol type (same value space as EtherType).
const ProtocolTypeIPv4 = 0x0800

// Operation represents the ARP operation type.
type Operation uint16

const (
	// OperationRequest is an ARP request (who has this IP?).
	OperationRequest Operation = 1

	// OperationReply is an ARP reply (I have this IP, here's my MAC).
	OperationReply Operation = 2
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OperationRequest:
		return "Request"
	case OperationReply:
		return "Reply"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(op))
	}
}

// MinLen returns the minimum buffer length for an ARP packet declaring
// the given hardware and protocol address sizes: the 8-byte fixed
// prefix plus two copies of each address.
func MinLen(hwAddrLen, protoAddrLen uint8) int {
	return FixedPrefixLen + 2*int(hwAddrLen) + 2*int(protoAddrLen)
}

// Header is the owned, decoded form of an ARP packet. The four address
// fields are raw bytes of HardwareLength/ProtocolLength size each;
// this package does not interpret them as MAC/IPv4 addresses beyond
// their bytes — see Packet for the Ethernet/IPv4 convenience layer.
type Header struct {
	HardwareType    uint16
	ProtocolType    uint16
	HardwareLength  uint8
	ProtocolLength  uint8
	Operation       Operation
	SenderHWAddr    []byte
	SenderProtoAddr []byte
	TargetHWAddr    []byte
	TargetProtoAddr []byte
}

// Slice is a zero-copy view over an ARP packet.
type Slice struct {
	data []byte // exactly MinLen(hwLen, protoLen) bytes
	hw   int
	pr   int
}

// FromSlice validates the 8-byte fixed prefix, computes
// min_len = 8 + 2*hw_addr_size + 2*proto_addr_size from the declared
// address lengths, and narrows data to that length. The four address
// fields are returned as sub-slices of the correct lengths.
func FromSlice(data []byte) (Slice, []byte, error) {
	if len(data) < FixedPrefixLen {
		return Slice{}, nil, &common.LengthError{
			RequiredLen: FixedPrefixLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerARPHeader,
		}
	}
	hw := int(data[4])
	pr := int(data[5])
	minLen := MinLen(uint8(hw), uint8(pr))
	if len(data) < minLen {
		return Slice{}, nil, &common.LengthError{
			RequiredLen: minLen,
			Len:         len(data),
			LenSource:   common.LenSourceARPAddrLengths,
			Layer:       common.LayerARPPayload,
		}
	}
	return Slice{data: data[:minLen], hw: hw, pr: pr}, data[minLen:], nil
}

func (s Slice) HardwareType() uint16  { return binary.BigEndian.Uint16(s.data[0:2]) }
func (s Slice) ProtocolType() uint16  { return binary.BigEndian.Uint16(s.data[2:4]) }
func (s Slice) HardwareLength() uint8 { return s.data[4] }
func (s Slice) ProtocolLength() uint8 { return s.data[5] }
func (s Slice) Operation() Operation  { return Operation(binary.BigEndian.Uint16(s.data[6:8])) }

func (s Slice) SenderHWAddr() []byte {
	o := FixedPrefixLen
	return s.data[o : o+s.hw]
}

func (s Slice) SenderProtoAddr() []byte {
	o := FixedPrefixLen + s.hw
	return s.data[o : o+s.pr]
}

func (s Slice) TargetHWAddr() []byte {
	o := FixedPrefixLen + s.hw + s.pr
	return s.data[o : o+s.hw]
}

func (s Slice) TargetProtoAddr() []byte {
	o := FixedPrefixLen + 2*s.hw + s.pr
	return s.data[o : o+s.pr]
}

func (s Slice) ToHeader() Header {
	return Header{
		HardwareType:    s.HardwareType(),
		ProtocolType:    s.ProtocolType(),
		HardwareLength:  s.HardwareLength(),
		ProtocolLength:  s.ProtocolLength(),
		Operation:       s.Operation(),
		SenderHWAddr:    append([]byte(nil), s.SenderHWAddr()...),
		SenderProtoAddr: append([]byte(nil), s.SenderProtoAddr()...),
		TargetHWAddr:    append([]byte(nil), s.TargetHWAddr()...),
		TargetProtoAddr: append([]byte(nil), s.TargetProtoAddr()...),
	}
}

func (h Header) ToBytes() []byte {
	n := MinLen(h.HardwareLength, h.ProtocolLength)
	b := make([]byte, n)
	binary.BigEndian.PutUint16(b[0:2], h.HardwareType)
	binary.BigEndian.PutUint16(b[2:4], h.ProtocolType)
	b[4] = h.HardwareLength
	b[5] = h.ProtocolLength
	binary.BigEndian.PutUint16(b[6:8], uint16(h.Operation))
	o := FixedPrefixLen
	copy(b[o:o+int(h.HardwareLength)], h.SenderHWAddr)
	o += int(h.HardwareLength)
	copy(b[o:o+int(h.ProtocolLength)], h.SenderProtoAddr)
	o += int(h.ProtocolLength)
	copy(b[o:o+int(h.HardwareLength)], h.TargetHWAddr)
	o += int(h.HardwareLength)
	copy(b[o:o+int(h.ProtocolLength)], h.TargetProtoAddr)
	return b
}

func (h Header) Write(w io.Writer) error {
	_, err := w.Write(h.ToBytes())
	return err
}

func (h Header) String() string {
	return fmt.Sprintf("ARP{HW=%d, Proto=0x%04x, Op=%s, Sender=%x(%x), Target=%x(%x)}",
		h.HardwareType, h.ProtocolType, h.Operation,
		h.SenderProtoAddr, h.SenderHWAddr, h.TargetProtoAddr, h.TargetHWAddr)
}

// Packet is the Ethernet/IPv4 specialization of Header, kept from the
// original ARP implementation for callers that only ever deal with
// 6-byte MAC and 4-byte IPv4 addresses.
type Packet struct {
	HardwareType   uint16
	ProtocolType   uint16
	HardwareLength uint8
	ProtocolLength uint8
	Operation      Operation
	SenderMAC      common.MACAddress
	SenderIP       common.IPv4Address
	TargetMAC      common.MACAddress
	TargetIP       common.IPv4Address
}

// Parse parses an Ethernet/IPv4 ARP packet from raw bytes. It rejects
// any packet that does not declare HardwareTypeEthernet/ProtocolTypeIPv4
// with 6/4 byte addresses; use FromSlice directly to handle other
// hardware/protocol combinations.
func Parse(data []byte) (*Packet, error) {
	sl, _, err := FromSlice(data)
	if err != nil {
		return nil, err
	}
	if sl.HardwareType() != HardwareTypeEthernet {
		return nil, fmt.Errorf("unsupported hardware type: %d", sl.HardwareType())
	}
	if sl.ProtocolType() != ProtocolTypeIPv4 {
		return nil, fmt.Errorf("unsupported protocol type: 0x%04x", sl.ProtocolType())
	}
	if sl.HardwareLength() != 6 {
		return nil, fmt.Errorf("invalid hardware address length: %d", sl.HardwareLength())
	}
	if sl.ProtocolLength() != 4 {
		return nil, fmt.Errorf("invalid protocol address length: %d", sl.ProtocolLength())
	}

	p := &Packet{
		HardwareType:   sl.HardwareType(),
		ProtocolType:   sl.ProtocolType(),
		HardwareLength: sl.HardwareLength(),
		ProtocolLength: sl.ProtocolLength(),
		Operation:      sl.Operation(),
	}
	copy(p.SenderMAC[:], sl.SenderHWAddr())
	copy(p.SenderIP[:], sl.SenderProtoAddr())
	copy(p.TargetMAC[:], sl.TargetHWAddr())
	copy(p.TargetIP[:], sl.TargetProtoAddr())
	return p, nil
}

// Serialize converts the ARP packet to bytes for transmission.
func (p *Packet) Serialize() []byte {
	h := Header{
		HardwareType:    HardwareTypeEthernet,
		ProtocolType:    ProtocolTypeIPv4,
		HardwareLength:  6,
		ProtocolLength:  4,
		Operation:       p.Operation,
		SenderHWAddr:    p.SenderMAC[:],
		SenderProtoAddr: p.SenderIP[:],
		TargetHWAddr:    p.TargetMAC[:],
		TargetProtoAddr: p.TargetIP[:],
	}
	return h.ToBytes()
}

// String returns a human-readable representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("ARP{Op=%s, Sender=%s(%s), Target=%s(%s)}",
		p.Operation,
		p.SenderIP,
		p.SenderMAC,
		p.TargetIP,
		p.TargetMAC,
	)
}

// NewRequest creates a new ARP request packet.
// This is used to ask "who has targetIP? Tell senderIP".
func NewRequest(senderMAC common.MACAddress, senderIP, targetIP common.IPv4Address) *Packet {
	return &Packet{
		HardwareType:   HardwareTypeEthernet,
		ProtocolType:   ProtocolTypeIPv4,
		HardwareLength: 6,
		ProtocolLength: 4,
		Operation:      OperationRequest,
		SenderMAC:      senderMAC,
		SenderIP:       senderIP,
		TargetMAC:      common.MACAddress{}, // Unknown (00:00:00:00:00:00)
		TargetIP:       targetIP,
	}
}

// NewReply creates a new ARP reply packet.
// This is used to respond "targetIP is at targetMAC".
func NewReply(senderMAC common.MACAddress, senderIP common.IPv4Address, targetMAC common.MACAddress, targetIP common.IPv4Address) *Packet {
	return &Packet{
		HardwareType:   HardwareTypeEthernet,
		ProtocolType:   ProtocolTypeIPv4,
		HardwareLength: 6,
		ProtocolLength: 4,
		Operation:      OperationReply,
		SenderMAC:      senderMAC,
		SenderIP:       senderIP,
		TargetMAC:      targetMAC,
		TargetIP:       targetIP,
	}
}

// IsRequest returns true if this is an ARP request.
func (p *Packet) IsRequest() bool {
	return p.Operation == OperationRequest
}

// IsReply returns true if this is an ARP reply.
func (p *Packet) IsReply() bool {
	return p.Operation == OperationReply
}
