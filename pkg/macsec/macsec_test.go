package macsec

import (
	"testing"

	"github.com/msandberg/netpkt/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_RoundTrip_NoSCI(t *testing.T) {
	h := Header{
		Encrypted:         true,
		Changed:           true,
		AssociationNumber: 2,
		ShortLen:          common.NewMACsecShortLen6Unchecked(10),
		PacketNumber:      12345,
	}
	b := h.ToBytes()
	sl, rest, err := FromSlice(append(b, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	require.NoError(t, err)
	assert.Equal(t, h, sl.ToHeader())
	assert.Equal(t, Encrypted, sl.ToHeader().PacketType())
	assert.Len(t, rest, 10)
}

func TestHeader_RoundTrip_WithSCI(t *testing.T) {
	h := Header{
		SCPresent:         true,
		AssociationNumber: 1,
		PacketNumber:      1,
		SCI:               [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	b := h.ToBytes()
	sl, _, err := FromSlice(b)
	require.NoError(t, err)
	got := sl.ToHeader()
	assert.True(t, got.SCPresent)
	assert.Equal(t, h.SCI, got.SCI)
	assert.Equal(t, 16, got.HeaderLen())
}

func TestSplitPayload_ShortLenZero(t *testing.T) {
	h := Header{ShortLen: common.NewMACsecShortLen6Unchecked(0)}
	payload, incomplete, src, err := SplitPayload(h, []byte{1, 2, 3}, false)
	require.NoError(t, err)
	assert.False(t, incomplete)
	assert.Equal(t, common.LenSourceSlice, src)
	assert.Equal(t, []byte{1, 2, 3}, payload)
}

func TestSplitPayload_Strict_TooShort(t *testing.T) {
	h := Header{ShortLen: common.NewMACsecShortLen6Unchecked(10)}
	_, _, _, err := SplitPayload(h, []byte{1, 2, 3}, false)
	require.Error(t, err)
}

func TestSplitPayload_Lax_TooShort(t *testing.T) {
	h := Header{ShortLen: common.NewMACsecShortLen6Unchecked(10)}
	payload, incomplete, src, err := SplitPayload(h, []byte{1, 2, 3}, true)
	require.NoError(t, err)
	assert.True(t, incomplete)
	assert.Equal(t, common.LenSourceSlice, src)
	assert.Equal(t, []byte{1, 2, 3}, payload)
}

func TestNextEtherType_Unmodified(t *testing.T) {
	h := Header{} // E=0, C=0 -> Unmodified
	et, ok := NextEtherType(h, []byte{0x08, 0x00, 0xAA})
	require.True(t, ok)
	assert.Equal(t, common.EtherTypeIPv4, et)
}

func TestNextEtherType_Encrypted(t *testing.T) {
	h := Header{Encrypted: true, Changed: true}
	_, ok := NextEtherType(h, []byte{0x08, 0x00})
	assert.False(t, ok)
}
