package ipv6

import (
	"encoding/binary"
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

// FragmentHeaderLen is the fixed length of an IPv6 Fragment header
// (RFC 8200 §4.5).
const FragmentHeaderLen = 8

// FragmentHeader is the IPv6 Fragment extension header. Its fragment
// offset is expressed, like the IPv4 one, in 8-byte units, so the two
// share common.FragmentOffset13 and the same reassembly buffer (§5 of the
// fragment reassembly note: identification space is independent of IP
// version, keyed only by (src, dst, protocol, id)).
type FragmentHeader struct {
	NextHeader     common.Protocol
	FragmentOffset common.FragmentOffset13
	MoreFragments  bool
	Identification uint32
}

// FragmentHeaderSlice is a zero-copy view over a FragmentHeader.
type FragmentHeaderSlice struct {
	data []byte
}

// FragmentHeaderFromSlice validates and wraps the fixed 8-byte fragment
// header at the front of data.
func FragmentHeaderFromSlice(data []byte) (sl FragmentHeaderSlice, rest []byte, err error) {
	if len(data) < FragmentHeaderLen {
		return FragmentHeaderSlice{}, nil, &common.LengthError{
			RequiredLen: FragmentHeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerIPv6FragHeader,
		}
	}
	return FragmentHeaderSlice{data: data[:FragmentHeaderLen]}, data[FragmentHeaderLen:], nil
}

func (s FragmentHeaderSlice) NextHeader() common.Protocol { return common.Protocol(s.data[0]) }

func (s FragmentHeaderSlice) FragmentOffset() common.FragmentOffset13 {
	v := uint32(binary.BigEndian.Uint16(s.data[2:4])) >> 3
	return common.NewFragmentOffset13Unchecked(v)
}

func (s FragmentHeaderSlice) MoreFragments() bool { return s.data[3]&0x01 != 0 }

func (s FragmentHeaderSlice) Identification() uint32 { return binary.BigEndian.Uint32(s.data[4:8]) }

func (s FragmentHeaderSlice) ToHeader() FragmentHeader {
	return FragmentHeader{
		NextHeader:     s.NextHeader(),
		FragmentOffset: s.FragmentOffset(),
		MoreFragments:  s.MoreFragments(),
		Identification: s.Identification(),
	}
}

// ToBytes serializes the header to its 8-byte wire representation.
func (h FragmentHeader) ToBytes() []byte {
	b := make([]byte, FragmentHeaderLen)
	b[0] = byte(h.NextHeader)
	b[1] = 0
	offsetFlags := uint16(h.FragmentOffset.Value()) << 3
	if h.MoreFragments {
		offsetFlags |= 0x01
	}
	binary.BigEndian.PutUint16(b[2:4], offsetFlags)
	binary.BigEndian.PutUint32(b[4:8], h.Identification)
	return b
}

func (h FragmentHeader) String() string {
	return fmt.Sprintf("IPv6FragmentHeader{NextHeader: %s, Offset: %d, MF: %t, ID: %d}",
		h.NextHeader, h.FragmentOffset.Value(), h.MoreFragments, h.Identification)
}
