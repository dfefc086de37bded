// Package ipv4 implements the Internet Protocol version 4 header (RFC 791)
// as a zero-copy Slice view and an owned Header, plus options and the
// IP Authentication Header (RFC 4302).
package ipv4

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

const (
	// Version is the version number for IPv4.
	Version = 4

	// MinHeaderLen is the minimum IPv4 header length (20 bytes, IHL=5).
	MinHeaderLen = 20

	// MaxHeaderLen is the maximum IPv4 header length (60 bytes, IHL=15).
	MaxHeaderLen = 60

	// MaxPacketLen is the maximum IPv4 packet size addressable by the
	// 16-bit total_length field.
	MaxPacketLen = 65535

	// DefaultTTL is the default Time To Live value for newly built headers.
	DefaultTTL = 64
)

const (
	flagDF = 0x40
	flagMF = 0x20
)

// Header is the owned, decoded form of an IPv4 header.
type Header struct {
	DSCP           common.DSCP
	ECN            common.ECN
	TotalLength    uint16
	Identification uint16
	DontFragment   bool
	MoreFragments  bool
	FragmentOffset common.FragmentOffset13
	TTL            uint8
	Protocol       common.Protocol
	HeaderChecksum uint16
	Source         common.IPv4Address
	Destination    common.IPv4Address
	Options        Options
}

// IHL returns the Internet Header Length in 32-bit words, derived from
// the options present rather than stored redundantly.
func (h Header) IHL() uint8 {
	return uint8(h.HeaderLen() / 4)
}

// HeaderLen returns the header length in bytes, including options.
func (h Header) HeaderLen() int {
	return MinHeaderLen + int(h.Options.Len)
}

// IsFragment returns true if this header describes a packet fragment:
// either it carries a non-zero fragment offset or the MF flag is set.
func (h Header) IsFragment() bool {
	return h.FragmentOffset.Value() != 0 || h.MoreFragments
}

// Slice is a zero-copy view over an IPv4 header (not including options'
// owned copy, payload, or trailing bytes).
type Slice struct {
	data []byte // exactly HeaderLen() bytes: fixed 20 + options
}

// FromSlice validates and decodes an IPv4 packet per RFC 791 §3.1:
//  1. len(data) < 20 is a length error against the raw slice.
//  2. version != 4 or ihl < 5 are content errors.
//  3. len(data) < header_length (= ihl*4) is a length error.
//  4. total_length < header_length is a content error.
//  5. len(data) < total_length is a length error attributed to the
//     IPv4 header's own total_length field (LenSourceIPv4HeaderTotalLen),
//     not the raw slice — a caller can reconstruct "how much was missing
//     according to the packet itself" from this distinction.
//
// Returns the header slice, the payload (data[header_length:total_length]),
// and the remainder of data beyond total_length (e.g. link-layer padding).
func FromSlice(data []byte) (sl Slice, payload []byte, rest []byte, err error) {
	if len(data) < MinHeaderLen {
		return Slice{}, nil, nil, &common.LengthError{
			RequiredLen: MinHeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPv4Header,
		}
	}

	version := data[0] >> 4
	if version != Version {
		return Slice{}, nil, nil, &common.ContentError{
			Layer:   common.LayerIPv4Header,
			Message: fmt.Sprintf("unexpected version number %d, expected %d", version, Version),
		}
	}

	ihl := data[0] & 0x0F
	if ihl < 5 {
		return Slice{}, nil, nil, &common.ContentError{
			Layer:   common.LayerIPv4Header,
			Message: fmt.Sprintf("ihl of %d is smaller than the minimum of 5", ihl),
		}
	}

	headerLen := int(ihl) * 4
	if len(data) < headerLen {
		return Slice{}, nil, nil, &common.LengthError{
			RequiredLen: headerLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPv4Header,
		}
	}

	totalLength := int(binary.BigEndian.Uint16(data[2:4]))
	if totalLength < headerLen {
		return Slice{}, nil, nil, &common.ContentError{
			Layer:   common.LayerIPv4Packet,
			Message: fmt.Sprintf("total_length of %d is smaller than the header length %d", totalLength, headerLen),
		}
	}
	if len(data) < totalLength {
		return Slice{}, nil, nil, &common.LengthError{
			RequiredLen: totalLength,
			Len:         len(data),
			LenSource:   common.LenSourceIPv4HeaderTotalLen,
			Layer:       common.LayerIPv4Packet,
		}
	}

	return Slice{data: data[:headerLen]}, data[headerLen:totalLength], data[totalLength:], nil
}

func (s Slice) Version() uint8 { return s.data[0] >> 4 }
func (s Slice) IHL() uint8     { return s.data[0] & 0x0F }

func (s Slice) DSCP() common.DSCP {
	return common.NewDSCPUnchecked(uint32(s.data[1] >> 2))
}

func (s Slice) ECN() common.ECN {
	return common.NewECNUnchecked(uint32(s.data[1] & 0x03))
}

func (s Slice) TotalLength() uint16    { return binary.BigEndian.Uint16(s.data[2:4]) }
func (s Slice) Identification() uint16 { return binary.BigEndian.Uint16(s.data[4:6]) }
func (s Slice) DontFragment() bool     { return s.data[6]&flagDF != 0 }
func (s Slice) MoreFragments() bool    { return s.data[6]&flagMF != 0 }

func (s Slice) FragmentOffset() common.FragmentOffset13 {
	v := (uint32(s.data[6]&0x1F) << 8) | uint32(s.data[7])
	return common.NewFragmentOffset13Unchecked(v)
}

func (s Slice) TTL() uint8                { return s.data[8] }
func (s Slice) Protocol() common.Protocol { return common.Protocol(s.data[9]) }
func (s Slice) HeaderChecksum() uint16    { return binary.BigEndian.Uint16(s.data[10:12]) }

func (s Slice) Source() common.IPv4Address {
	var a common.IPv4Address
	copy(a[:], s.data[12:16])
	return a
}

func (s Slice) Destination() common.IPv4Address {
	var a common.IPv4Address
	copy(a[:], s.data[16:20])
	return a
}

// OptionsRaw returns the options bytes (possibly empty).
func (s Slice) OptionsRaw() []byte {
	return s.data[MinHeaderLen:]
}

// HeaderBytes returns the full header (fixed part + options) this
// slice was built from.
func (s Slice) HeaderBytes() []byte { return s.data }

func (s Slice) ToHeader() (Header, error) {
	opts, err := OptionsFromSlice(s.OptionsRaw())
	if err != nil {
		return Header{}, err
	}
	return Header{
		DSCP:           s.DSCP(),
		ECN:            s.ECN(),
		TotalLength:    s.TotalLength(),
		Identification: s.Identification(),
		DontFragment:   s.DontFragment(),
		MoreFragments:  s.MoreFragments(),
		FragmentOffset: s.FragmentOffset(),
		TTL:            s.TTL(),
		Protocol:       s.Protocol(),
		HeaderChecksum: s.HeaderChecksum(),
		Source:         s.Source(),
		Destination:    s.Destination(),
		Options:        opts,
	}, nil
}

// ToBytes serializes the header and options (but not the payload),
// computing and stamping the header checksum per RFC 791 §3.1.
func (h Header) ToBytes() []byte {
	n := h.HeaderLen()
	b := make([]byte, n)
	b[0] = (Version << 4) | h.IHL()
	b[1] = (h.DSCP.Value() << 2) | h.ECN.Value()
	binary.BigEndian.PutUint16(b[2:4], h.TotalLength)
	binary.BigEndian.PutUint16(b[4:6], h.Identification)

	var flags byte
	if h.DontFragment {
		flags |= flagDF
	}
	if h.MoreFragments {
		flags |= flagMF
	}
	fragOff := h.FragmentOffset.Value()
	b[6] = flags | byte(fragOff>>8)
	b[7] = byte(fragOff)

	b[8] = h.TTL
	b[9] = uint8(h.Protocol)
	// checksum written below, zeroed for now
	copy(b[12:16], h.Source[:])
	copy(b[16:20], h.Destination[:])
	copy(b[20:], h.Options.Bytes())

	checksum := common.CalculateChecksum(b)
	binary.BigEndian.PutUint16(b[10:12], checksum)
	return b
}

func (h Header) Write(w io.Writer) error {
	_, err := w.Write(h.ToBytes())
	return err
}

// VerifyChecksum reports whether the stored HeaderChecksum is correct
// for this header's fields.
func (h Header) VerifyChecksum() bool {
	b := h.ToBytes()
	binary.BigEndian.PutUint16(b[10:12], h.HeaderChecksum)
	return common.CalculateChecksum(b) == 0
}

// DecrementTTL decrements TTL and returns true if the packet may still
// be forwarded (TTL remains above zero).
func (h *Header) DecrementTTL() bool {
	if h.TTL == 0 {
		return false
	}
	h.TTL--
	return h.TTL > 0
}

func (h Header) String() string {
	return fmt.Sprintf("IPv4{%s -> %s, Proto=%s, TTL=%d, ID=%d, Len=%d}",
		h.Source, h.Destination, h.Protocol, h.TTL, h.Identification, h.TotalLength)
}

// Packet is a fully decoded IPv4 packet: the header, the decoded
// Authentication Header when Protocol is AUTH, and the final
// upper-layer payload.
type Packet struct {
	Header

	// Auth is non-nil when Header.Protocol is ProtocolAuth: the AH sits
	// between the IPv4 header and the upper-layer payload, so decoding
	// it is part of parsing the packet, not a separate caller step.
	Auth *AuthHeader

	// PayloadProtocol is Header.Protocol, unless Auth is set, in which
	// case it is the AH's own NextHeader.
	PayloadProtocol common.Protocol
	Payload         []byte
}

// Parse decodes a complete IPv4 packet: the header (with options), the
// IP Authentication Header when present, and the upper-layer payload.
// A length error surfaced while decoding the AH is re-tagged against
// the IPv4 header's total_length field and offset by the header length
// (ihl*4), matching how nested-layer errors are attributed elsewhere in
// this module.
func Parse(data []byte) (*Packet, error) {
	sl, payload, _, err := FromSlice(data)
	if err != nil {
		return nil, err
	}
	h, err := sl.ToHeader()
	if err != nil {
		return nil, err
	}

	if h.Protocol != common.ProtocolAuth {
		return &Packet{Header: h, PayloadProtocol: h.Protocol, Payload: payload}, nil
	}

	authSl, rest, err := AuthFromSlice(payload)
	if err != nil {
		if lenErr, isLen := err.(*common.LengthError); isLen {
			return nil, lenErr.WithLayer(common.LayerIPv4Packet, common.LenSourceIPv4HeaderTotalLen).AddOffset(h.HeaderLen())
		}
		return nil, err
	}
	auth, err := authSl.ToHeader()
	if err != nil {
		return nil, err
	}

	return &Packet{Header: h, Auth: &auth, PayloadProtocol: auth.NextHeader, Payload: rest}, nil
}

// NewHeader builds a Header with default values (no options, no
// fragmentation, DefaultTTL) for src/dst/protocol, ready to have
// TotalLength set by Serialize.
func NewHeader(src, dst common.IPv4Address, protocol common.Protocol) Header {
	return Header{
		TTL:         DefaultTTL,
		Protocol:    protocol,
		Source:      src,
		Destination: dst,
	}
}

// Serialize builds a complete IPv4 packet (header + payload), computing
// TotalLength from the header's length and len(payload), and stamping
// the header checksum. It fails if the resulting packet would exceed
// MaxPacketLen.
func Serialize(h Header, payload []byte) ([]byte, error) {
	headerLen := h.HeaderLen()
	total := headerLen + len(payload)
	if total > MaxPacketLen {
		return nil, fmt.Errorf("ipv4: packet too large: %d bytes (maximum %d)", total, MaxPacketLen)
	}
	h.TotalLength = uint16(total)

	buf := make([]byte, total)
	copy(buf, h.ToBytes())
	copy(buf[headerLen:], payload)
	return buf, nil
}
