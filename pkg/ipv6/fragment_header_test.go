package ipv6

import (
	"testing"

	"github.com/msandberg/netpkt/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentHeader_RoundTrip(t *testing.T) {
	h := FragmentHeader{
		NextHeader:     common.ProtocolUDP,
		FragmentOffset: common.NewFragmentOffset13Unchecked(100),
		MoreFragments:  true,
		Identification: 0xCAFEBABE,
	}
	b := h.ToBytes()
	assert.Equal(t, FragmentHeaderLen, len(b))

	sl, rest, err := FragmentHeaderFromSlice(append(b, 0xAA))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, rest)
	assert.Equal(t, h, sl.ToHeader())
}

func TestFragmentHeaderFromSlice_TooShort(t *testing.T) {
	_, _, err := FragmentHeaderFromSlice(make([]byte, 4))
	require.Error(t, err)
	var lenErr *common.LengthError
	require.ErrorAs(t, err, &lenErr)
}
