// Package icmpv6 implements the Internet Control Message Protocol for
// IPv6 (ICMPv6) as defined in RFC 4443. It shares ICMPv4's tagged-variant
// decode shape (pkg/icmpv4) but has its own type/code space and a
// checksum computed over an IPv6 pseudo-header, per RFC 4443 §2.3.
package icmpv6

import (
	"encoding/binary"
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

// ICMPv6 message types this package decodes as a distinct variant.
// Neighbor Discovery types (133-137) are out of scope and decode as
// Unknown.
const (
	TypeDestinationUnreachable uint8 = 1
	TypePacketTooBig           uint8 = 2
	TypeTimeExceeded           uint8 = 3
	TypeParameterProblem       uint8 = 4
	TypeEchoRequest            uint8 = 128
	TypeEchoReply              uint8 = 129
)

// MinHeaderLength is the minimum ICMPv6 message length.
const MinHeaderLength = 8

// DestUnreachableCode enumerates RFC 4443 §3.1 Destination Unreachable codes.
type DestUnreachableCode uint8

const (
	CodeNoRouteToDestination      DestUnreachableCode = 0
	CodeAdministrativelyProhibited DestUnreachableCode = 1
	CodeBeyondScopeOfSource       DestUnreachableCode = 2
	CodeAddressUnreachable        DestUnreachableCode = 3
	CodePortUnreachable           DestUnreachableCode = 4
	CodeSourceAddressFailedPolicy DestUnreachableCode = 5
	CodeRejectRouteToDestination  DestUnreachableCode = 6
)

// TimeExceededCode enumerates RFC 4443 §3.3 Time Exceeded codes.
type TimeExceededCode uint8

const (
	CodeHopLimitExceeded       TimeExceededCode = 0
	CodeFragmentReassemblyTime TimeExceededCode = 1
)

// ParameterProblemCode enumerates RFC 4443 §3.4 Parameter Problem codes.
type ParameterProblemCode uint8

const (
	CodeErroneousHeaderField  ParameterProblemCode = 0
	CodeUnrecognizedNextHeader ParameterProblemCode = 1
	CodeUnrecognizedOption    ParameterProblemCode = 2
)

// Echo is the body of an Echo Request or Echo Reply message.
type Echo struct {
	ID       uint16
	Sequence uint16
}

// DestinationUnreachable is the body of a Destination Unreachable message.
type DestinationUnreachable struct {
	Code DestUnreachableCode
}

// PacketTooBig is the body of a Packet Too Big message (RFC 4443 §3.2):
// MTU reports the largest packet the constricting link can carry.
type PacketTooBig struct {
	MTU uint32
}

// TimeExceeded is the body of a Time Exceeded message.
type TimeExceeded struct {
	Code TimeExceededCode
}

// ParameterProblem is the body of a Parameter Problem message. Pointer
// identifies the octet offset within the invoking packet where the
// problem was found.
type ParameterProblem struct {
	Code    ParameterProblemCode
	Pointer uint32
}

// Unknown holds a message whose type this package doesn't decode into a
// dedicated variant (Neighbor Discovery and other ICMPv6 extensions).
type Unknown struct {
	Type  uint8
	Code  uint8
	Bytes [4]byte
}

// Message is a decoded ICMPv6 message. Exactly one typed field is set.
type Message struct {
	Type     uint8
	Checksum uint16

	Echo             *Echo
	DestUnreachable  *DestinationUnreachable
	PacketTooBig     *PacketTooBig
	TimeExceeded     *TimeExceeded
	ParameterProblem *ParameterProblem
	Unknown          *Unknown

	Data []byte
}

// Parse decodes an ICMPv6 message from raw bytes.
func Parse(data []byte) (*Message, error) {
	if len(data) < MinHeaderLength {
		return nil, &common.LengthError{
			RequiredLen: MinHeaderLength,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerICMPv6,
		}
	}

	msgType := data[0]
	code := data[1]
	checksum := binary.BigEndian.Uint16(data[2:4])
	msg := &Message{Type: msgType, Checksum: checksum}

	switch msgType {
	case TypeEchoRequest, TypeEchoReply:
		msg.Echo = &Echo{
			ID:       binary.BigEndian.Uint16(data[4:6]),
			Sequence: binary.BigEndian.Uint16(data[6:8]),
		}

	case TypeDestinationUnreachable:
		msg.DestUnreachable = &DestinationUnreachable{Code: DestUnreachableCode(code)}

	case TypePacketTooBig:
		msg.PacketTooBig = &PacketTooBig{MTU: binary.BigEndian.Uint32(data[4:8])}

	case TypeTimeExceeded:
		msg.TimeExceeded = &TimeExceeded{Code: TimeExceededCode(code)}

	case TypeParameterProblem:
		msg.ParameterProblem = &ParameterProblem{
			Code:    ParameterProblemCode(code),
			Pointer: binary.BigEndian.Uint32(data[4:8]),
		}

	default:
		msg.Unknown = &Unknown{Type: msgType, Code: code}
		copy(msg.Unknown.Bytes[:], data[4:8])
	}

	msg.Data = cloneRest(data[8:])
	return msg, nil
}

func cloneRest(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// Serialize converts the message to wire bytes. It does not compute the
// checksum: call CalculateChecksum/VerifyChecksum, which need the
// enclosing IPv6 pseudo-header.
func (m *Message) Serialize() ([]byte, error) {
	var header [8]byte
	var code uint8

	switch {
	case m.Echo != nil:
		header[0] = m.Type
		binary.BigEndian.PutUint16(header[4:6], m.Echo.ID)
		binary.BigEndian.PutUint16(header[6:8], m.Echo.Sequence)

	case m.DestUnreachable != nil:
		header[0] = TypeDestinationUnreachable
		code = uint8(m.DestUnreachable.Code)

	case m.PacketTooBig != nil:
		header[0] = TypePacketTooBig
		binary.BigEndian.PutUint32(header[4:8], m.PacketTooBig.MTU)

	case m.TimeExceeded != nil:
		header[0] = TypeTimeExceeded
		code = uint8(m.TimeExceeded.Code)

	case m.ParameterProblem != nil:
		header[0] = TypeParameterProblem
		code = uint8(m.ParameterProblem.Code)
		binary.BigEndian.PutUint32(header[4:8], m.ParameterProblem.Pointer)

	case m.Unknown != nil:
		header[0] = m.Unknown.Type
		code = m.Unknown.Code
		copy(header[4:8], m.Unknown.Bytes[:])

	default:
		return nil, fmt.Errorf("icmpv6: message has no body set")
	}

	header[1] = code
	buf := make([]byte, 8+len(m.Data))
	copy(buf, header[:])
	copy(buf[8:], m.Data)
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)

	return buf, nil
}

// CalculateChecksum computes the ICMPv6 checksum over the IPv6
// pseudo-header plus the message (RFC 4443 §2.3, RFC 8200 §8.1).
func (m *Message) CalculateChecksum(srcIP, dstIP common.IPv6Address) (uint16, error) {
	data, err := m.Serialize()
	if err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint16(data[2:4], 0)

	pseudoHeader := common.IPv6PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		UpperLayerLen:   uint32(len(data)),
		NextHeader:      common.ProtocolICMPv6,
	}

	return common.CalculateChecksumWithIPv6PseudoHeader(pseudoHeader, data), nil
}

// VerifyChecksum verifies the ICMPv6 checksum with the given IPv6
// pseudo-header.
func (m *Message) VerifyChecksum(srcIP, dstIP common.IPv6Address) bool {
	data, err := m.Serialize()
	if err != nil {
		return false
	}

	pseudoHeader := common.IPv6PseudoHeader{
		SourceAddr:      srcIP,
		DestinationAddr: dstIP,
		UpperLayerLen:   uint32(len(data)),
		NextHeader:      common.ProtocolICMPv6,
	}

	return common.VerifyChecksum(append(pseudoHeader.Bytes(), data...))
}

// NewEchoRequest creates an Echo Request message.
func NewEchoRequest(id, sequence uint16, data []byte) *Message {
	return &Message{Type: TypeEchoRequest, Echo: &Echo{ID: id, Sequence: sequence}, Data: data}
}

// NewEchoReply creates an Echo Reply message.
func NewEchoReply(id, sequence uint16, data []byte) *Message {
	return &Message{Type: TypeEchoReply, Echo: &Echo{ID: id, Sequence: sequence}, Data: data}
}

// IsEchoRequest returns true if this is an Echo Request message.
func (m *Message) IsEchoRequest() bool {
	return m.Type == TypeEchoRequest
}

// IsEchoReply returns true if this is an Echo Reply message.
func (m *Message) IsEchoReply() bool {
	return m.Type == TypeEchoReply
}

// IsError returns true if this message reports an error condition rather
// than an informational exchange.
func (m *Message) IsError() bool {
	return m.DestUnreachable != nil || m.PacketTooBig != nil ||
		m.TimeExceeded != nil || m.ParameterProblem != nil
}

// String returns a human-readable representation of the message.
func (m *Message) String() string {
	switch {
	case m.Echo != nil:
		return fmt.Sprintf("ICMPv6{Type=%d, ID=%d, Seq=%d, DataLen=%d}", m.Type, m.Echo.ID, m.Echo.Sequence, len(m.Data))
	case m.DestUnreachable != nil:
		return fmt.Sprintf("ICMPv6{DestinationUnreachable, Code=%d, DataLen=%d}", m.DestUnreachable.Code, len(m.Data))
	case m.PacketTooBig != nil:
		return fmt.Sprintf("ICMPv6{PacketTooBig, MTU=%d, DataLen=%d}", m.PacketTooBig.MTU, len(m.Data))
	case m.TimeExceeded != nil:
		return fmt.Sprintf("ICMPv6{TimeExceeded, Code=%d, DataLen=%d}", m.TimeExceeded.Code, len(m.Data))
	case m.ParameterProblem != nil:
		return fmt.Sprintf("ICMPv6{ParameterProblem, Code=%d, Pointer=%d, DataLen=%d}", m.ParameterProblem.Code, m.ParameterProblem.Pointer, len(m.Data))
	case m.Unknown != nil:
		return fmt.Sprintf("ICMPv6{Unknown, Type=%d, Code=%d}", m.Unknown.Type, m.Unknown.Code)
	default:
		return "ICMPv6{<empty>}"
	}
}
