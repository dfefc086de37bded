package ethernet

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// 802.1Q VLAN tag (4 bytes, inserted between the source MAC and the
// EtherType of a plain Ethernet II frame):
// +-----+---+----------------+----------------+
// | PCP |DEI|   VLAN ID (12) | Inner Type (16)|
// +-----+---+----------------+----------------+
//
// A frame may carry two such tags back to back (802.1ad "Q-in-Q"); the
// outer tag's own EtherType is then 0x88A8 or the legacy 0x9100 instead
// of 0x8100.

// VLANHeaderLen is the size of a single 802.1Q VLAN tag (4 bytes).
const VLANHeaderLen = 4

// VLANHeader is the owned, decoded form of a single VLAN tag.
type VLANHeader struct {
	PCP       common.PCP3
	DEI       bool
	VLANID    common.VLANID12
	EtherType common.EtherType // the type/tag that follows this one
}

// VLANSlice is a zero-copy view over a single VLAN tag.
type VLANSlice struct {
	data []byte
}

// VLANFromSlice narrows data to exactly VLANHeaderLen bytes.
func VLANFromSlice(data []byte) (VLANSlice, []byte, error) {
	if len(data) < VLANHeaderLen {
		return VLANSlice{}, nil, &common.LengthError{
			RequiredLen: VLANHeaderLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerVLANHeader,
		}
	}
	return VLANSlice{data: data[:VLANHeaderLen]}, data[VLANHeaderLen:], nil
}

func (s VLANSlice) PCP() common.PCP3 {
	return common.NewPCP3Unchecked(uint32(s.data[0] >> 5))
}

func (s VLANSlice) DEI() bool {
	return s.data[0]&0x10 != 0
}

func (s VLANSlice) VLANID() common.VLANID12 {
	v := (uint16(s.data[0]&0x0F) << 8) | uint16(s.data[1])
	return common.NewVLANID12Unchecked(uint32(v))
}

func (s VLANSlice) EtherType() common.EtherType {
	return common.EtherType(binary.BigEndian.Uint16(s.data[2:4]))
}

func (s VLANSlice) ToHeader() VLANHeader {
	return VLANHeader{
		PCP:       s.PCP(),
		DEI:       s.DEI(),
		VLANID:    s.VLANID(),
		EtherType: s.EtherType(),
	}
}

// ToBytes serializes the VLAN tag to its wire form.
func (h VLANHeader) ToBytes() [VLANHeaderLen]byte {
	var b [VLANHeaderLen]byte
	first := uint8(h.PCP.Value()) << 5
	if h.DEI {
		first |= 0x10
	}
	first |= uint8(h.VLANID.Value() >> 8)
	b[0] = first
	b[1] = uint8(h.VLANID.Value())
	binary.BigEndian.PutUint16(b[2:4], uint16(h.EtherType))
	return b
}

func (h VLANHeader) Write(w io.Writer) error {
	b := h.ToBytes()
	_, err := w.Write(b[:])
	return err
}

func (h VLANHeader) String() string {
	return fmt.Sprintf("VLAN{PCP=%d, DEI=%t, ID=%d, Type=%s}", h.PCP.Value(), h.DEI, h.VLANID.Value(), h.EtherType)
}

// VLANStack is the result of walking one or two VLAN tags off the front
// of a frame's payload.
type VLANStack struct {
	Outer VLANHeader
	Inner *VLANHeader // non-nil for a double (Q-in-Q) tag
}

// InnerEtherType returns the EtherType that identifies the payload
// following the VLAN stack (the inner tag's type if double-tagged,
// otherwise the outer tag's type).
func (s VLANStack) InnerEtherType() common.EtherType {
	if s.Inner != nil {
		return s.Inner.EtherType
	}
	return s.Outer.EtherType
}

// ParseVLANStack walks one or two VLAN tags off the front of data. The
// caller supplies the EtherType that introduced the first tag (normally
// an Ethernet2 header's EtherType field); ParseVLANStack only recognizes
// a second tag if the first tag's own EtherType is again one of
// {0x8100, 0x88A8, 0x9100} (common.IsVLANTagEtherType).
func ParseVLANStack(outerEtherType common.EtherType, data []byte) (VLANStack, []byte, error) {
	if !common.IsVLANTagEtherType(outerEtherType) {
		return VLANStack{}, nil, &common.ContentError{
			Layer:   common.LayerVLANHeader,
			Message: fmt.Sprintf("EtherType 0x%04x does not introduce a VLAN tag", uint16(outerEtherType)),
		}
	}

	outerSlice, rest, err := VLANFromSlice(data)
	if err != nil {
		return VLANStack{}, nil, err
	}
	outer := outerSlice.ToHeader()

	if !common.IsVLANTagEtherType(outer.EtherType) {
		return VLANStack{Outer: outer}, rest, nil
	}

	innerSlice, rest2, err := VLANFromSlice(rest)
	if err != nil {
		return VLANStack{}, nil, err.(*common.LengthError).AddOffset(VLANHeaderLen)
	}
	inner := innerSlice.ToHeader()
	return VLANStack{Outer: outer, Inner: &inner}, rest2, nil
}
