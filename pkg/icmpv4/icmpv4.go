// Package icmpv4 implements the Internet Control Message Protocol (ICMP)
// for IPv4 as defined in RFC 792, plus the RFC 1122/RFC 1812 destination
// unreachable and parameter problem code extensions.
package icmpv4

import (
	"encoding/binary"
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

// ICMP message types this package decodes as a distinct variant. Any
// other type decodes into Unknown.
const (
	TypeEchoReply              uint8 = 0
	TypeDestinationUnreachable uint8 = 3
	TypeRedirect               uint8 = 5
	TypeEchoRequest            uint8 = 8
	TypeTimeExceeded           uint8 = 11
	TypeParameterProblem       uint8 = 12
	TypeTimestampRequest       uint8 = 13
	TypeTimestampReply         uint8 = 14
)

// MinHeaderLength is the minimum ICMP message length (type, code,
// checksum, and 4 bytes of type-specific header).
const MinHeaderLength = 8

// DestUnreachableCode enumerates RFC 792/RFC 1122/RFC 1812 Destination
// Unreachable codes (grounded on etherparse's DestUnreachableHeader).
type DestUnreachableCode uint8

const (
	CodeNetUnreachable          DestUnreachableCode = 0
	CodeHostUnreachable         DestUnreachableCode = 1
	CodeProtocolUnreachable     DestUnreachableCode = 2
	CodePortUnreachable         DestUnreachableCode = 3
	CodeFragmentationNeeded     DestUnreachableCode = 4
	CodeSourceRouteFailed       DestUnreachableCode = 5
	CodeNetworkUnknown          DestUnreachableCode = 6
	CodeHostUnknown             DestUnreachableCode = 7
	CodeSourceHostIsolated      DestUnreachableCode = 8
	CodeNetworkProhibited       DestUnreachableCode = 9
	CodeHostProhibited          DestUnreachableCode = 10
	CodeTOSNetworkUnreachable   DestUnreachableCode = 11
	CodeTOSHostUnreachable      DestUnreachableCode = 12
	CodeFilterProhibited        DestUnreachableCode = 13
	CodeHostPrecedenceViolation DestUnreachableCode = 14
	CodePrecedenceCutoff        DestUnreachableCode = 15
)

// TimeExceededCode enumerates RFC 792 Time Exceeded codes.
type TimeExceededCode uint8

const (
	CodeTTLExceeded            TimeExceededCode = 0
	CodeFragmentReassemblyTime TimeExceededCode = 1
)

// ParameterProblemCode enumerates RFC 792/RFC 1122 Parameter Problem codes.
type ParameterProblemCode uint8

const (
	CodePointerIndicatesError ParameterProblemCode = 0
	CodeMissingRequiredOption ParameterProblemCode = 1
	CodeBadLength             ParameterProblemCode = 2
)

// Echo is the body of an Echo Request or Echo Reply message.
type Echo struct {
	ID       uint16
	Sequence uint16
}

// DestinationUnreachable is the body of a Destination Unreachable message.
// NextHopMTU is only meaningful when Code is CodeFragmentationNeeded.
type DestinationUnreachable struct {
	Code       DestUnreachableCode
	NextHopMTU uint16
}

// TimeExceeded is the body of a Time Exceeded message.
type TimeExceeded struct {
	Code TimeExceededCode
}

// ParameterProblem is the body of a Parameter Problem message. Pointer is
// only meaningful when Code is CodePointerIndicatesError.
type ParameterProblem struct {
	Code    ParameterProblemCode
	Pointer uint8
}

// Redirect is the body of a Redirect message.
type Redirect struct {
	Code           uint8
	GatewayAddress common.IPv4Address
}

// Timestamp is the body of a Timestamp Request or Timestamp Reply message.
type Timestamp struct {
	ID                 uint16
	Sequence           uint16
	OriginateTimestamp uint32
	ReceiveTimestamp   uint32
	TransmitTimestamp  uint32
}

// Unknown holds a message whose type this package doesn't decode into a
// dedicated variant: the 4 type-specific header bytes are kept raw.
type Unknown struct {
	Type  uint8
	Code  uint8
	Bytes [4]byte
}

// Message is a decoded ICMPv4 message. Exactly one of the typed fields is
// set, matching which Type the message carries; Data holds whatever
// follows the fixed-size header (the embedded original datagram for
// error messages, the echoed payload for echo messages).
type Message struct {
	Type     uint8
	Checksum uint16

	Echo             *Echo
	DestUnreachable  *DestinationUnreachable
	TimeExceeded     *TimeExceeded
	ParameterProblem *ParameterProblem
	Redirect         *Redirect
	Timestamp        *Timestamp
	Unknown          *Unknown

	Data []byte
}

// Parse decodes an ICMPv4 message from raw bytes.
func Parse(data []byte) (*Message, error) {
	if len(data) < MinHeaderLength {
		return nil, &common.LengthError{
			RequiredLen: MinHeaderLength,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerICMPv4,
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
		msg.Data = cloneRest(data[8:])

	case TypeDestinationUnreachable:
		du := &DestinationUnreachable{Code: DestUnreachableCode(code)}
		if du.Code == CodeFragmentationNeeded {
			du.NextHopMTU = binary.BigEndian.Uint16(data[6:8])
		}
		msg.DestUnreachable = du
		msg.Data = cloneRest(data[8:])

	case TypeTimeExceeded:
		msg.TimeExceeded = &TimeExceeded{Code: TimeExceededCode(code)}
		msg.Data = cloneRest(data[8:])

	case TypeParameterProblem:
		msg.ParameterProblem = &ParameterProblem{
			Code:    ParameterProblemCode(code),
			Pointer: data[4],
		}
		msg.Data = cloneRest(data[8:])

	case TypeRedirect:
		msg.Redirect = &Redirect{
			Code:           code,
			GatewayAddress: common.IPv4Address{data[4], data[5], data[6], data[7]},
		}
		msg.Data = cloneRest(data[8:])

	case TypeTimestampRequest, TypeTimestampReply:
		if len(data) < 20 {
			return nil, &common.LengthError{
				RequiredLen: 20,
				Len:         len(data),
				LenSource:   common.LenSourceSlice,
				Layer:       common.LayerICMPv4,
			}
		}
		msg.Timestamp = &Timestamp{
			ID:                 binary.BigEndian.Uint16(data[4:6]),
			Sequence:           binary.BigEndian.Uint16(data[6:8]),
			OriginateTimestamp: binary.BigEndian.Uint32(data[8:12]),
			ReceiveTimestamp:   binary.BigEndian.Uint32(data[12:16]),
			TransmitTimestamp:  binary.BigEndian.Uint32(data[16:20]),
		}
		msg.Data = cloneRest(data[20:])

	default:
		msg.Unknown = &Unknown{Type: msgType, Code: code}
		copy(msg.Unknown.Bytes[:], data[4:8])
		msg.Data = cloneRest(data[8:])
	}

	return msg, nil
}

func cloneRest(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// Serialize converts the message to wire bytes. The checksum field is
// computed over the whole message (RFC 792: plain one's-complement, no
// pseudo-header) and written into the returned buffer.
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
		if m.DestUnreachable.Code == CodeFragmentationNeeded {
			binary.BigEndian.PutUint16(header[6:8], m.DestUnreachable.NextHopMTU)
		}

	case m.TimeExceeded != nil:
		header[0] = TypeTimeExceeded
		code = uint8(m.TimeExceeded.Code)

	case m.ParameterProblem != nil:
		header[0] = TypeParameterProblem
		code = uint8(m.ParameterProblem.Code)
		header[4] = m.ParameterProblem.Pointer

	case m.Redirect != nil:
		header[0] = TypeRedirect
		code = m.Redirect.Code
		copy(header[4:8], m.Redirect.GatewayAddress[:])

	case m.Timestamp != nil:
		buf := make([]byte, 20+len(m.Data))
		buf[0] = m.Type
		binary.BigEndian.PutUint16(buf[4:6], m.Timestamp.ID)
		binary.BigEndian.PutUint16(buf[6:8], m.Timestamp.Sequence)
		binary.BigEndian.PutUint32(buf[8:12], m.Timestamp.OriginateTimestamp)
		binary.BigEndian.PutUint32(buf[12:16], m.Timestamp.ReceiveTimestamp)
		binary.BigEndian.PutUint32(buf[16:20], m.Timestamp.TransmitTimestamp)
		copy(buf[20:], m.Data)
		m.Checksum = common.CalculateChecksum(buf)
		binary.BigEndian.PutUint16(buf[2:4], m.Checksum)
		return buf, nil

	case m.Unknown != nil:
		header[0] = m.Unknown.Type
		code = m.Unknown.Code
		copy(header[4:8], m.Unknown.Bytes[:])

	default:
		return nil, fmt.Errorf("icmpv4: message has no body set")
	}

	header[1] = code
	buf := make([]byte, 8+len(m.Data))
	copy(buf, header[:])
	copy(buf[8:], m.Data)

	m.Checksum = common.CalculateChecksum(buf)
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)

	return buf, nil
}

// VerifyChecksum reports whether the message's checksum is correct.
func (m *Message) VerifyChecksum() bool {
	stored := m.Checksum
	buf, err := m.Serialize()
	m.Checksum = stored
	if err != nil {
		return false
	}
	binary.BigEndian.PutUint16(buf[2:4], stored)
	return common.CalculateChecksum(buf) == 0
}

// NewEchoRequest creates an Echo Request message.
func NewEchoRequest(id, sequence uint16, data []byte) *Message {
	return &Message{Type: TypeEchoRequest, Echo: &Echo{ID: id, Sequence: sequence}, Data: data}
}

// NewEchoReply creates an Echo Reply message.
func NewEchoReply(id, sequence uint16, data []byte) *Message {
	return &Message{Type: TypeEchoReply, Echo: &Echo{ID: id, Sequence: sequence}, Data: data}
}

// NewDestinationUnreachable creates a Destination Unreachable message.
func NewDestinationUnreachable(code DestUnreachableCode, data []byte) *Message {
	return &Message{
		Type:            TypeDestinationUnreachable,
		DestUnreachable: &DestinationUnreachable{Code: code},
		Data:            data,
	}
}

// NewTimeExceeded creates a Time Exceeded message.
func NewTimeExceeded(code TimeExceededCode, data []byte) *Message {
	return &Message{Type: TypeTimeExceeded, TimeExceeded: &TimeExceeded{Code: code}, Data: data}
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
	return m.DestUnreachable != nil || m.TimeExceeded != nil ||
		m.ParameterProblem != nil || m.Redirect != nil
}

// String returns a human-readable representation of the message.
func (m *Message) String() string {
	switch {
	case m.Echo != nil:
		return fmt.Sprintf("ICMPv4{Type=%d, ID=%d, Seq=%d, DataLen=%d}", m.Type, m.Echo.ID, m.Echo.Sequence, len(m.Data))
	case m.DestUnreachable != nil:
		return fmt.Sprintf("ICMPv4{DestinationUnreachable, Code=%d, DataLen=%d}", m.DestUnreachable.Code, len(m.Data))
	case m.TimeExceeded != nil:
		return fmt.Sprintf("ICMPv4{TimeExceeded, Code=%d, DataLen=%d}", m.TimeExceeded.Code, len(m.Data))
	case m.ParameterProblem != nil:
		return fmt.Sprintf("ICMPv4{ParameterProblem, Code=%d, Pointer=%d, DataLen=%d}", m.ParameterProblem.Code, m.ParameterProblem.Pointer, len(m.Data))
	case m.Redirect != nil:
		return fmt.Sprintf("ICMPv4{Redirect, Gateway=%s, DataLen=%d}", m.Redirect.GatewayAddress.String(), len(m.Data))
	case m.Timestamp != nil:
		return fmt.Sprintf("ICMPv4{Timestamp, Type=%d, ID=%d, Seq=%d}", m.Type, m.Timestamp.ID, m.Timestamp.Sequence)
	case m.Unknown != nil:
		return fmt.Sprintf("ICMPv4{Unknown, Type=%d, Code=%d}", m.Unknown.Type, m.Unknown.Code)
	default:
		return "ICMPv4{<empty>}"
	}
}
