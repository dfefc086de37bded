package ipv6

import (
	"testing"

	"github.com/msandberg/netpkt/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawExtHeader_RoundTrip(t *testing.T) {
	h, err := NewRawExtHeader(common.ProtocolUDP, []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	b := h.ToBytes()
	assert.Equal(t, 8, len(b))

	sl, rest, err := RawExtHeaderFromSlice(append(b, 0xFF))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, rest)
	assert.Equal(t, h, sl.ToHeader())
}

func TestNewRawExtHeader_RejectsBadLength(t *testing.T) {
	_, err := NewRawExtHeader(common.ProtocolUDP, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestRawExtHeaderFromSlice_TooShort(t *testing.T) {
	_, _, err := RawExtHeaderFromSlice(make([]byte, 4))
	require.Error(t, err)
	var lenErr *common.LengthError
	require.ErrorAs(t, err, &lenErr)
}

func TestRawExtHeaderFromSlice_DeclaredLongerThanSlice(t *testing.T) {
	data := make([]byte, 8)
	data[1] = 1 // declares (1+1)*8 = 16 bytes
	_, _, err := RawExtHeaderFromSlice(data)
	require.Error(t, err)
}
