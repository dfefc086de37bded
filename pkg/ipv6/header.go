package ipv6

import (
	"encoding/binary"
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

// Header is the fixed 40-byte IPv6 base header (RFC 8200 §3), as an owned
// value rather than a zero-copy view.
type Header struct {
	TrafficClass  uint8
	FlowLabel     common.FlowLabel20
	PayloadLength uint16
	NextHeader    common.Protocol
	HopLimit      uint8
	Source        common.IPv6Address
	Destination   common.IPv6Address
}

// Slice is a zero-copy view over an IPv6 base header.
type Slice struct {
	data []byte
}

// FromSlice validates and wraps the 40-byte IPv6 base header at the front
// of data. When lax is false, the payload must be fully present per
// PayloadLength; when lax is true, a short payload is tolerated and
// reported via incomplete instead of returning an error (§4.14).
func FromSlice(data []byte, lax bool) (sl Slice, payload []byte, rest []byte, incomplete bool, err error) {
	if len(data) < HeaderLength {
		return Slice{}, nil, nil, false, &common.LengthError{
			RequiredLen: HeaderLength,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPv6Header,
		}
	}

	sl = Slice{data: data[:HeaderLength]}

	if ver := sl.Version(); ver != IPv6Version {
		return Slice{}, nil, nil, false, &common.ContentError{
			Layer:   common.LayerIPv6Header,
			Message: fmt.Sprintf("unexpected version number: %d", ver),
		}
	}

	payloadLen := int(sl.PayloadLength())
	available := len(data) - HeaderLength

	// A PayloadLength of zero signals a jumbogram (RFC 2675): the real
	// payload length lives in a Jumbo Payload hop-by-hop option instead
	// of the 16-bit header field, so the remainder of the slice is taken
	// as the payload rather than an empty one.
	if payloadLen == 0 {
		return sl, data[HeaderLength:], nil, false, nil
	}

	if available < payloadLen {
		if !lax {
			return Slice{}, nil, nil, false, &common.LengthError{
				RequiredLen: HeaderLength + payloadLen,
				Len:         len(data),
				LenSource:   common.LenSourceIPv6HeaderPayloadLen,
				Layer:       common.LayerIPv6Packet,
			}
		}
		return sl, data[HeaderLength:], nil, true, nil
	}

	return sl, data[HeaderLength : HeaderLength+payloadLen], data[HeaderLength+payloadLen:], false, nil
}

func (s Slice) Version() uint8 { return s.data[0] >> 4 }

func (s Slice) TrafficClass() uint8 {
	return (s.data[0]&0x0F)<<4 | s.data[1]>>4
}

func (s Slice) FlowLabel() common.FlowLabel20 {
	v := uint32(s.data[1]&0x0F)<<16 | uint32(s.data[2])<<8 | uint32(s.data[3])
	return common.NewFlowLabel20Unchecked(v)
}

func (s Slice) PayloadLength() uint16 { return binary.BigEndian.Uint16(s.data[4:6]) }

func (s Slice) NextHeader() common.Protocol { return common.Protocol(s.data[6]) }

func (s Slice) HopLimit() uint8 { return s.data[7] }

func (s Slice) Source() common.IPv6Address {
	var a common.IPv6Address
	copy(a[:], s.data[8:24])
	return a
}

func (s Slice) Destination() common.IPv6Address {
	var a common.IPv6Address
	copy(a[:], s.data[24:40])
	return a
}

func (s Slice) HeaderBytes() []byte { return s.data }

// ToHeader copies the slice's fields into an owned Header.
func (s Slice) ToHeader() Header {
	return Header{
		TrafficClass:  s.TrafficClass(),
		FlowLabel:     s.FlowLabel(),
		PayloadLength: s.PayloadLength(),
		NextHeader:    s.NextHeader(),
		HopLimit:      s.HopLimit(),
		Source:        s.Source(),
		Destination:   s.Destination(),
	}
}

// ToBytes serializes the header to its 40-byte wire representation.
func (h Header) ToBytes() []byte {
	b := make([]byte, HeaderLength)
	b[0] = IPv6Version<<4 | h.TrafficClass>>4
	b[1] = h.TrafficClass<<4 | byte(h.FlowLabel.Value()>>16)
	binary.BigEndian.PutUint16(b[2:4], uint16(h.FlowLabel.Value()))
	binary.BigEndian.PutUint16(b[4:6], h.PayloadLength)
	b[6] = byte(h.NextHeader)
	b[7] = h.HopLimit
	copy(b[8:24], h.Source[:])
	copy(b[24:40], h.Destination[:])
	return b
}

func (h Header) Write(w func([]byte) (int, error)) error {
	_, err := w(h.ToBytes())
	return err
}

func (h Header) String() string {
	return fmt.Sprintf("IPv6Header{NextHeader: %s, HopLimit: %d, Src: %s, Dst: %s, PayloadLen: %d}",
		h.NextHeader, h.HopLimit, h.Source, h.Destination, h.PayloadLength)
}

// NewHeader builds a Header with a default hop limit and zero traffic
// class/flow label, ready to have PayloadLength filled in by Serialize.
func NewHeader(src, dst common.IPv6Address, nextHeader common.Protocol) Header {
	return Header{
		NextHeader:  nextHeader,
		HopLimit:    DefaultHopLimit,
		Source:      src,
		Destination: dst,
	}
}
