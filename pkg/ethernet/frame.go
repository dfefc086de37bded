// Package ethernet implements Ethernet II framing (IEEE 802.3), 802.1Q
// VLAN tagging, and the Linux "cooked capture" (SLL) pseudo-header.
package ethernet

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// Ethernet II frame format:
// +-------------------+-------------------+----------+---------+
// | Destination (6B)  | Source (6B)       | Type (2B)| Payload |
// +-------------------+-------------------+----------+---------+

const (
	// HeaderLen is the size of an Ethernet II header (14 bytes).
	HeaderLen = 14

	// MinFrameSize is the minimum Ethernet frame size including FCS (64 bytes).
	MinFrameSize = 64

	// MaxFrameSize is the maximum Ethernet frame size including FCS (1518 bytes).
	MaxFrameSize = 1518

	// MinPayloadSize is the minimum payload size (46 bytes).
	MinPayloadSize = 46

	// MaxPayloadSize is the maximum payload size (1500 bytes, MTU).
	MaxPayloadSize = 1500
)

// Header is the owned, decoded form of an Ethernet II header.
type Header struct {
	Destination common.MACAddress
	Source      common.MACAddress
	EtherType   common.EtherType
}

// Slice is a zero-copy view over an Ethernet II header: it retains the
// narrowed window and decodes fields on demand instead of eagerly copying
// them into a Header, following this module's Slice/Header split (every
// protocol gets a lazy Slice alongside its owned Header).
type Slice struct {
	data []byte
}

// FromSlice narrows data to exactly HeaderLen bytes and returns a Slice
// view plus the remaining payload. It returns a *common.LengthError if
// data is shorter than HeaderLen.
func FromSlice(data []byte) (Slice, []byte, error) {
	if len(data) < HeaderLen {
		return Slice{}, nil, &common.LengthError{
			RequiredLen: HeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerEthernet2Header,
		}
	}
	return Slice{data: data[:HeaderLen]}, data[HeaderLen:], nil
}

// Destination returns the destination MAC address.
func (s Slice) Destination() common.MACAddress {
	var mac common.MACAddress
	copy(mac[:], s.data[0:6])
	return mac
}

// Source returns the source MAC address.
func (s Slice) Source() common.MACAddress {
	var mac common.MACAddress
	copy(mac[:], s.data[6:12])
	return mac
}

// EtherType returns the frame's EtherType field.
func (s Slice) EtherType() common.EtherType {
	return common.EtherType(binary.BigEndian.Uint16(s.data[12:14]))
}

// Raw returns the raw header bytes.
func (s Slice) Raw() []byte { return s.data }

// ToHeader materializes the fields into an owned Header.
func (s Slice) ToHeader() Header {
	return Header{
		Destination: s.Destination(),
		Source:      s.Source(),
		EtherType:   s.EtherType(),
	}
}

// FromBytes decodes a fixed-size Ethernet II header.
func FromBytes(b [HeaderLen]byte) Header {
	sl := Slice{data: b[:]}
	return sl.ToHeader()
}

// Read decodes an Ethernet II header from r.
func Read(r io.Reader) (Header, error) {
	var buf [HeaderLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, &common.LengthError{
			RequiredLen: HeaderLen,
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerEthernet2Header,
		}
	}
	return FromBytes(buf), nil
}

// ToBytes serializes the header to its wire form.
func (h Header) ToBytes() [HeaderLen]byte {
	var b [HeaderLen]byte
	copy(b[0:6], h.Destination[:])
	copy(b[6:12], h.Source[:])
	binary.BigEndian.PutUint16(b[12:14], uint16(h.EtherType))
	return b
}

// Write serializes the header to w.
func (h Header) Write(w io.Writer) error {
	b := h.ToBytes()
	_, err := w.Write(b[:])
	return err
}

// HeaderLen returns the fixed header length in bytes.
func (h Header) HeaderLen() int { return HeaderLen }

func (h Header) String() string {
	return fmt.Sprintf("Ethernet2{Dst=%s, Src=%s, Type=%s}", h.Destination, h.Source, h.EtherType)
}

// IsBroadcast returns true if the destination is the broadcast address.
func (h Header) IsBroadcast() bool { return h.Destination.IsBroadcast() }

// IsMulticast returns true if the destination is a multicast address.
func (h Header) IsMulticast() bool { return h.Destination.IsMulticast() }

// IsUnicast returns true if the destination is neither broadcast nor multicast.
func (h Header) IsUnicast() bool { return !h.IsBroadcast() && !h.IsMulticast() }

// Frame is a convenience combination of a Header and its payload, for
// callers that want a single struct instead of the Slice/Header split.
type Frame struct {
	Header
	Payload []byte
}

// Parse parses a complete Ethernet II frame (header + payload) from data.
func Parse(data []byte) (*Frame, error) {
	hdr, payload, err := FromSlice(data)
	if err != nil {
		return nil, err
	}
	return &Frame{Header: hdr.ToHeader(), Payload: payload}, nil
}

// Serialize converts the frame to bytes for transmission, padding the
// payload up to MinPayloadSize the way Ethernet requires.
func (f *Frame) Serialize() []byte {
	frameSize := HeaderLen + len(f.Payload)
	if len(f.Payload) < MinPayloadSize {
		frameSize = HeaderLen + MinPayloadSize
	}

	buf := make([]byte, frameSize)
	hb := f.Header.ToBytes()
	copy(buf[0:HeaderLen], hb[:])
	copy(buf[HeaderLen:], f.Payload)
	return buf
}

// Size returns the total size of the frame in bytes, including padding.
func (f *Frame) Size() int {
	size := HeaderLen + len(f.Payload)
	if len(f.Payload) < MinPayloadSize {
		size = HeaderLen + MinPayloadSize
	}
	return size
}

func (f *Frame) String() string {
	return fmt.Sprintf("Ethernet{Dst=%s, Src=%s, Type=%s, PayloadLen=%d}",
		f.Destination, f.Source, f.EtherType, len(f.Payload))
}

// NewFrame creates a new Ethernet frame.
func NewFrame(dst, src common.MACAddress, etherType common.EtherType, payload []byte) *Frame {
	return &Frame{Header: Header{Destination: dst, Source: src, EtherType: etherType}, Payload: payload}
}
