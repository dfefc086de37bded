package ipv4

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// IP Authentication Header (RFC 4302). Shared between pkg/ipv4 and
// pkg/ipv6: the AH wire format is identical regardless of which IP
// version carries it, only its next_header value changes meaning.
//
// Unlike every other IP extension header, AH's length unit is 4
// octets, not 8 — this package keeps that distinction explicit rather
// than reusing the 8-octet raw extension header shape IPv6 extensions
// otherwise share.

// AuthMinLen is the smallest valid AH: next_header(1) + payload_len(1)
// + reserved(2) + SPI(4) + sequence number(4), with a zero-length ICV.
const AuthMinLen = 12

// AuthMaxICVLen is the largest ICV this package will hold inline: the
// payload_len field is a single byte, so the largest encodable AH is
// (255+2)*4 = 1028 bytes, leaving 1028-12 = 1016 bytes of ICV.
const AuthMaxICVLen = 1016

// AuthHeader is the owned, decoded form of an IP Authentication Header.
type AuthHeader struct {
	NextHeader     common.Protocol
	SequenceNumber uint32
	SPI            uint32
	icv            [AuthMaxICVLen]byte
	icvLen         int
}

// NewAuthHeader builds an AuthHeader, copying icv (capped at
// AuthMaxICVLen bytes) inline.
func NewAuthHeader(nextHeader common.Protocol, spi, sequenceNumber uint32, icv []byte) (AuthHeader, error) {
	if len(icv) > AuthMaxICVLen {
		return AuthHeader{}, &common.ContentError{
			Layer:   common.LayerIPAuthHeader,
			Message: fmt.Sprintf("icv length %d exceeds the maximum of %d", len(icv), AuthMaxICVLen),
		}
	}
	h := AuthHeader{NextHeader: nextHeader, SPI: spi, SequenceNumber: sequenceNumber, icvLen: len(icv)}
	copy(h.icv[:], icv)
	return h, nil
}

// ICV returns the integrity check value bytes.
func (h AuthHeader) ICV() []byte { return h.icv[:h.icvLen] }

// HeaderLen returns the encoded length in bytes: 12 + len(ICV), with no
// rounding. ToBytes writes payload_len as HeaderLen()/4 - 2, so the
// header round-trips through AuthFromSlice only when len(ICV) is a
// multiple of 4 (RFC 4302 requires the header to be a multiple of 4
// octets); NewAuthHeader does not check this.
func (h AuthHeader) HeaderLen() int { return AuthMinLen + h.icvLen }

// AuthSlice is a zero-copy view over an IP Authentication Header.
type AuthSlice struct {
	data []byte // exactly ((payload_len_enc)+2)*4 bytes
}

// AuthFromSlice decodes an AH per RFC 4302 / etherparse's
// IpAuthHeaderSlice::from_slice: the length is read from byte 1 and is
// in 4-octet units via len = (payload_len_enc + 2) * 4, NOT the 8-octet
// unit every other IP extension header uses.
func AuthFromSlice(data []byte) (AuthSlice, []byte, error) {
	if len(data) < AuthMinLen {
		return AuthSlice{}, nil, &common.LengthError{
			RequiredLen: AuthMinLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPAuthHeader,
		}
	}
	payloadLenEnc := data[1]
	if payloadLenEnc < 1 {
		return AuthSlice{}, nil, &common.ContentError{
			Layer:   common.LayerIPAuthHeader,
			Message: "payload length field is zero, the AH ICV must be word-aligned and non-negative",
		}
	}
	length := (int(payloadLenEnc) + 2) * 4
	if len(data) < length {
		return AuthSlice{}, nil, &common.LengthError{
			RequiredLen: length,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPAuthHeader,
		}
	}
	return AuthSlice{data: data[:length]}, data[length:], nil
}

func (s AuthSlice) NextHeader() common.Protocol { return common.Protocol(s.data[0]) }
func (s AuthSlice) SPI() uint32                 { return binary.BigEndian.Uint32(s.data[4:8]) }
func (s AuthSlice) SequenceNumber() uint32       { return binary.BigEndian.Uint32(s.data[8:12]) }
func (s AuthSlice) RawICV() []byte               { return s.data[12:] }
func (s AuthSlice) HeaderBytes() []byte          { return s.data }

func (s AuthSlice) ToHeader() (AuthHeader, error) {
	return NewAuthHeader(s.NextHeader(), s.SPI(), s.SequenceNumber(), s.RawICV())
}

func (h AuthHeader) ToBytes() []byte {
	n := h.HeaderLen()
	b := make([]byte, n)
	b[0] = uint8(h.NextHeader)
	b[1] = uint8(n/4 - 2)
	binary.BigEndian.PutUint32(b[4:8], h.SPI)
	binary.BigEndian.PutUint32(b[8:12], h.SequenceNumber)
	copy(b[12:], h.ICV())
	return b
}

func (h AuthHeader) Write(w io.Writer) error {
	_, err := w.Write(h.ToBytes())
	return err
}

func (h AuthHeader) String() string {
	return fmt.Sprintf("AH{NextHeader=%s, SPI=%#08x, Seq=%d, ICVLen=%d}",
		h.NextHeader, h.SPI, h.SequenceNumber, h.icvLen)
}
