package ethernet

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// Linux "cooked capture" (SLL v1) pseudo-header, used by libpcap when
// capturing on the "any" interface or a device with no fixed link-layer
// header (16 bytes):
// +----------+-----------+--------+-----------+-------------+------------+
// | Type (2) | ARPHRD (2)| AddrLen(2)| Addr (8) | ProtoType(2)|
// +----------+-----------+--------+-----------+-------------+------------+

// SLLHeaderLen is the fixed size of a Linux SLL v1 header (16 bytes).
const SLLHeaderLen = 16

// SLLPacketType classifies how the packet relates to the capturing host.
type SLLPacketType uint16

const (
	SLLPacketHost      SLLPacketType = 0 // addressed to this host
	SLLPacketBroadcast SLLPacketType = 1
	SLLPacketMulticast SLLPacketType = 2
	SLLPacketOtherHost SLLPacketType = 3 // addressed elsewhere, seen in promiscuous mode
	SLLPacketOutgoing  SLLPacketType = 4 // sent by this host
)

func (t SLLPacketType) String() string {
	switch t {
	case SLLPacketHost:
		return "Host"
	case SLLPacketBroadcast:
		return "Broadcast"
	case SLLPacketMulticast:
		return "Multicast"
	case SLLPacketOtherHost:
		return "OtherHost"
	case SLLPacketOutgoing:
		return "Outgoing"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(t))
	}
}

// SLLHeader is the owned, decoded form of a Linux SLL v1 header.
type SLLHeader struct {
	PacketType    SLLPacketType
	ARPHardwareID uint16
	AddressLength uint16
	Address       [8]byte
	ProtocolType  uint16 // interpretation depends on ARPHardwareID
}

// SLLSlice is a zero-copy view over a Linux SLL v1 header.
type SLLSlice struct {
	data []byte
}

// SLLFromSlice narrows data to exactly SLLHeaderLen bytes.
func SLLFromSlice(data []byte) (SLLSlice, []byte, error) {
	if len(data) < SLLHeaderLen {
		return SLLSlice{}, nil, &common.LengthError{
			RequiredLen: SLLHeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerLinuxSLLHeader,
		}
	}
	return SLLSlice{data: data[:SLLHeaderLen]}, data[SLLHeaderLen:], nil
}

func (s SLLSlice) PacketType() SLLPacketType {
	return SLLPacketType(binary.BigEndian.Uint16(s.data[0:2]))
}

func (s SLLSlice) ARPHardwareID() uint16 {
	return binary.BigEndian.Uint16(s.data[2:4])
}

func (s SLLSlice) AddressLength() uint16 {
	return binary.BigEndian.Uint16(s.data[4:6])
}

func (s SLLSlice) Address() [8]byte {
	var a [8]byte
	copy(a[:], s.data[6:14])
	return a
}

func (s SLLSlice) ProtocolType() uint16 {
	return binary.BigEndian.Uint16(s.data[14:16])
}

func (s SLLSlice) ToHeader() SLLHeader {
	return SLLHeader{
		PacketType:    s.PacketType(),
		ARPHardwareID: s.ARPHardwareID(),
		AddressLength: s.AddressLength(),
		Address:       s.Address(),
		ProtocolType:  s.ProtocolType(),
	}
}

// EtherTypeIfEthernet returns (EtherType, true) when ARPHardwareID
// identifies the captured link as Ethernet (ARPHRD_ETHER == 1), in which
// case ProtocolType follows the same EtherType space as an Ethernet II
// frame. Otherwise it returns (0, false), mirroring the way this module's
// EtherType.String already dispatches by value rather than assuming a
// single fixed meaning.
func (h SLLHeader) EtherTypeIfEthernet() (common.EtherType, bool) {
	const arphrdEther = 1
	if h.ARPHardwareID != arphrdEther {
		return 0, false
	}
	return common.EtherType(h.ProtocolType), true
}

func (h SLLHeader) ToBytes() [SLLHeaderLen]byte {
	var b [SLLHeaderLen]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(h.PacketType))
	binary.BigEndian.PutUint16(b[2:4], h.ARPHardwareID)
	binary.BigEndian.PutUint16(b[4:6], h.AddressLength)
	copy(b[6:14], h.Address[:])
	binary.BigEndian.PutUint16(b[14:16], h.ProtocolType)
	return b
}

func (h SLLHeader) Write(w io.Writer) error {
	b := h.ToBytes()
	_, err := w.Write(b[:])
	return err
}

func (h SLLHeader) String() string {
	return fmt.Sprintf("SLL{Type=%s, ARPHRD=%d, AddrLen=%d, ProtoType=0x%04x}",
		h.PacketType, h.ARPHardwareID, h.AddressLength, h.ProtocolType)
}
