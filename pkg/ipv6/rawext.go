package ipv6

import (
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

const (
	rawExtMinLen = 8
	rawExtMaxLen = 2048
)

// RawExtHeader is the generic 8-octet-unit extension header shape shared by
// Hop-by-Hop Options, Routing, Destination Options, Mobility, HIP, and
// SHIM6 (RFC 8200 §4.3, §4.6).
type RawExtHeader struct {
	NextHeader common.Protocol
	Data       []byte
}

// NewRawExtHeader validates that 2+len(data) is a multiple of 8 within
// [rawExtMinLen, rawExtMaxLen] before building the header.
func NewRawExtHeader(nextHeader common.Protocol, data []byte) (RawExtHeader, error) {
	total := 2 + len(data)
	if total < rawExtMinLen || total > rawExtMaxLen || total%8 != 0 {
		return RawExtHeader{}, fmt.Errorf("ipv6: raw extension header length %d is not a valid multiple of 8 in [%d, %d]", total, rawExtMinLen, rawExtMaxLen)
	}
	return RawExtHeader{NextHeader: nextHeader, Data: data}, nil
}

// ToBytes serializes the header to its wire representation.
func (h RawExtHeader) ToBytes() []byte {
	total := 2 + len(h.Data)
	b := make([]byte, total)
	b[0] = byte(h.NextHeader)
	b[1] = byte(total/8 - 1)
	copy(b[2:], h.Data)
	return b
}

// RawExtHeaderSlice is a zero-copy view over a RawExtHeader.
type RawExtHeaderSlice struct {
	data []byte
}

// RawExtHeaderFromSlice validates and wraps the extension header at the
// front of data, returning the remaining bytes after it.
func RawExtHeaderFromSlice(data []byte) (sl RawExtHeaderSlice, rest []byte, err error) {
	if len(data) < rawExtMinLen {
		return RawExtHeaderSlice{}, nil, &common.LengthError{
			RequiredLen: rawExtMinLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPv6ExtHeader,
		}
	}

	total := (int(data[1]) + 1) * 8

	if len(data) < total {
		return RawExtHeaderSlice{}, nil, &common.LengthError{
			RequiredLen: total,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPv6ExtHeader,
		}
	}

	return RawExtHeaderSlice{data: data[:total]}, data[total:], nil
}

func (s RawExtHeaderSlice) NextHeader() common.Protocol { return common.Protocol(s.data[0]) }

func (s RawExtHeaderSlice) HeaderExtLen() uint8 { return s.data[1] }

func (s RawExtHeaderSlice) TotalLen() int { return len(s.data) }

func (s RawExtHeaderSlice) OptionsData() []byte { return s.data[2:] }

func (s RawExtHeaderSlice) HeaderBytes() []byte { return s.data }

func (s RawExtHeaderSlice) ToHeader() RawExtHeader {
	data := make([]byte, len(s.data)-2)
	copy(data, s.data[2:])
	return RawExtHeader{NextHeader: s.NextHeader(), Data: data}
}
