// Package macsec decodes the IEEE 802.1AE MACsec SecTag, the security
// tag link-layer protection inserts between the Ethernet header and the
// (possibly encrypted) payload.
package macsec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// SecTag without an SCI is 8 bytes: TCI/AN(1) + short_len(1) + packet
// number(4) + 2 further bytes. With an SCI it is 16 bytes: the 8-byte SCI
// sits directly after the packet number (bytes 6..14) and the last 2
// bytes are again unused.
const (
	MinSecTagLen = 8
	MaxSecTagLen = 16
	SCILen       = 8
)

// TCI/AN bit layout (byte 0): V(1) ES(1) SC(1) SCB(1) E(1) C(1) AN(2).
const (
	tciV   = 0x80
	tciES  = 0x40
	tciSC  = 0x20
	tciSCB = 0x10
	tciE   = 0x08
	tciC   = 0x04
	tciAN  = 0x03
)

// PacketTypeKind tags the shape of a SecTag's payload.
type PacketTypeKind int

const (
	// Unmodified means E=0, C=0: the payload is plaintext and begins
	// with the 2-byte EtherType it carries.
	Unmodified PacketTypeKind = iota
	// Modified means E=0, C=1: the payload has been altered for
	// integrity but not encrypted; its EtherType is not recoverable
	// without the MACsec key.
	Modified
	// Encrypted means E=1, C=1: the payload is encrypted.
	Encrypted
	// EncryptedUnmodified means E=1, C=0: a reserved TCI combination,
	// kept as its own tag rather than folded into Encrypted so the
	// caller can see the irregular bit pattern.
	EncryptedUnmodified
)

// PacketType is a tagged union: EtherType is only meaningful when Kind
// is Unmodified.
type PacketType struct {
	Kind      PacketTypeKind
	EtherType common.EtherType
}

func (t PacketTypeKind) String() string {
	switch t {
	case Unmodified:
		return "Unmodified"
	case Modified:
		return "Modified"
	case Encrypted:
		return "Encrypted"
	case EncryptedUnmodified:
		return "EncryptedUnmodified"
	default:
		return "Unknown"
	}
}

func classify(e, c bool) PacketTypeKind {
	switch {
	case !e && !c:
		return Unmodified
	case !e && c:
		return Modified
	case e && c:
		return Encrypted
	default:
		return EncryptedUnmodified
	}
}

// Header is the owned, decoded form of a MACsec SecTag.
type Header struct {
	Version               bool
	EndStation             bool
	SCPresent              bool
	SingleCopyBroadcast    bool
	Encrypted              bool
	Changed                bool
	AssociationNumber      uint8
	ShortLen               common.MACsecShortLen6
	PacketNumber           uint32
	SCI                    [SCILen]byte // valid only if SCPresent
}

// HeaderLen returns 16 if an SCI is present, otherwise 8.
func (h Header) HeaderLen() int {
	if h.SCPresent {
		return MaxSecTagLen
	}
	return MinSecTagLen
}

// PacketType derives the tagged payload-shape union from the E/C bits.
func (h Header) PacketType() PacketTypeKind {
	return classify(h.Encrypted, h.Changed)
}

// Slice is a zero-copy view over a MACsec SecTag.
type Slice struct {
	data []byte // exactly HeaderLen() bytes
}

func scPresent(b0 byte) bool { return b0&tciSC != 0 }

// FromSlice decodes the fixed portion, determines whether an SCI follows
// from the SC bit, and narrows data accordingly.
func FromSlice(data []byte) (Slice, []byte, error) {
	if len(data) < MinSecTagLen {
		return Slice{}, nil, &common.LengthError{
			RequiredLen: MinSecTagLen,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerMACsecHeader,
		}
	}
	total := MinSecTagLen
	if scPresent(data[0]) {
		total = MaxSecTagLen
	}
	if len(data) < total {
		return Slice{}, nil, &common.LengthError{
			RequiredLen: total,
			Len:         len(data),
			LenSource:   common.LenSourceSlice,
			Layer:       common.LayerMACsecHeader,
		}
	}
	return Slice{data: data[:total]}, data[total:], nil
}

func (s Slice) tci() byte { return s.data[0] }

func (s Slice) Version() bool             { return s.tci()&tciV != 0 }
func (s Slice) EndStation() bool          { return s.tci()&tciES != 0 }
func (s Slice) SCPresent() bool           { return s.tci()&tciSC != 0 }
func (s Slice) SingleCopyBroadcast() bool { return s.tci()&tciSCB != 0 }
func (s Slice) Encrypted() bool           { return s.tci()&tciE != 0 }
func (s Slice) Changed() bool             { return s.tci()&tciC != 0 }
func (s Slice) AssociationNumber() uint8  { return s.tci() & tciAN }

func (s Slice) ShortLen() common.MACsecShortLen6 {
	return common.NewMACsecShortLen6Unchecked(uint32(s.data[1] & 0x3F))
}

func (s Slice) PacketNumber() uint32 {
	return binary.BigEndian.Uint32(s.data[2:6])
}

func (s Slice) SCI() ([SCILen]byte, bool) {
	var sci [SCILen]byte
	if !s.SCPresent() {
		return sci, false
	}
	copy(sci[:], s.data[6:6+SCILen])
	return sci, true
}

func (s Slice) ToHeader() Header {
	h := Header{
		Version:             s.Version(),
		EndStation:          s.EndStation(),
		SCPresent:           s.SCPresent(),
		SingleCopyBroadcast: s.SingleCopyBroadcast(),
		Encrypted:           s.Encrypted(),
		Changed:             s.Changed(),
		AssociationNumber:   s.AssociationNumber(),
		ShortLen:            s.ShortLen(),
		PacketNumber:        s.PacketNumber(),
	}
	if sci, ok := s.SCI(); ok {
		h.SCI = sci
	}
	return h
}

func (h Header) ToBytes() []byte {
	n := h.HeaderLen()
	b := make([]byte, n)
	var tci byte
	if h.Version {
		tci |= tciV
	}
	if h.EndStation {
		tci |= tciES
	}
	if h.SCPresent {
		tci |= tciSC
	}
	if h.SingleCopyBroadcast {
		tci |= tciSCB
	}
	if h.Encrypted {
		tci |= tciE
	}
	if h.Changed {
		tci |= tciC
	}
	tci |= h.AssociationNumber & tciAN
	b[0] = tci
	b[1] = h.ShortLen.Value()
	binary.BigEndian.PutUint32(b[2:6], h.PacketNumber)
	if h.SCPresent {
		copy(b[6:6+SCILen], h.SCI[:])
	}
	return b
}

func (h Header) Write(w io.Writer) error {
	_, err := w.Write(h.ToBytes())
	return err
}

func (h Header) String() string {
	return fmt.Sprintf("MACsec{AN=%d, ShortLen=%d, PN=%d, SCPresent=%t, Kind=%s}",
		h.AssociationNumber, h.ShortLen.Value(), h.PacketNumber, h.SCPresent, h.PacketType())
}

// SplitPayload implements §4.9: given the bytes following the SecTag and
// whether the caller wants strict or lax handling, returns the payload
// bytes, an "incomplete" flag (lax mode only), and the len_source that
// should be attributed to the split.
func SplitPayload(h Header, rest []byte, lax bool) (payload []byte, incomplete bool, lenSource common.LenSource, err error) {
	if h.ShortLen.Value() == 0 {
		return rest, false, common.LenSourceSlice, nil
	}
	want := int(h.ShortLen.Value())
	if len(rest) >= want {
		return rest[:want], false, common.LenSourceMACsecShortLength, nil
	}
	if lax {
		return rest, true, common.LenSourceSlice, nil
	}
	return nil, false, common.LenSourceMACsecShortLength, &common.LengthError{
		RequiredLen: want,
		Len:         len(rest),
		LenSource:   common.LenSourceMACsecShortLength,
		Layer:       common.LayerMACsecHeader,
	}
}

// NextEtherType returns the EtherType of the frame carried inside an
// Unmodified SecTag payload, or (0, false) for any other packet type
// (the payload is opaque once encrypted or integrity-modified).
func NextEtherType(h Header, payload []byte) (common.EtherType, bool) {
	if h.PacketType() != Unmodified || len(payload) < 2 {
		return 0, false
	}
	return common.EtherType(binary.BigEndian.Uint16(payload[0:2])), true
}
