package ethernet

import (
	"bytes"
	"testing"

	"github.com/msandberg/netpkt/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrameBytes() []byte {
	return []byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // destination
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // source
		0x08, 0x00, // EtherType IPv4
		0x45, 0x00, 0x00, 0x54, // payload
	}
}

func TestFromSlice(t *testing.T) {
	data := testFrameBytes()
	sl, payload, err := FromSlice(data)
	require.NoError(t, err)

	assert.Equal(t, common.BroadcastMAC, sl.Destination())
	assert.Equal(t, common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}, sl.Source())
	assert.Equal(t, common.EtherTypeIPv4, sl.EtherType())
	assert.Equal(t, []byte{0x45, 0x00, 0x00, 0x54}, payload)
}

func TestFromSlice_TooShort(t *testing.T) {
	_, _, err := FromSlice(testFrameBytes()[:13])
	require.Error(t, err)
	var lenErr *common.LengthError
	require.ErrorAs(t, err, &lenErr)
	assert.Equal(t, common.LayerEthernet2Header, lenErr.Layer)
}

func TestHeader_RoundTripFromSlice(t *testing.T) {
	h := Header{
		Destination: common.MACAddress{1, 2, 3, 4, 5, 6},
		Source:      common.MACAddress{6, 5, 4, 3, 2, 1},
		EtherType:   common.EtherTypeIPv6,
	}
	b := h.ToBytes()
	sl, _, err := FromSlice(append(b[:], 0xAA))
	require.NoError(t, err)
	assert.Equal(t, h, sl.ToHeader())
}

func TestHeader_Write_Read_RoundTrip(t *testing.T) {
	h := Header{
		Destination: common.MACAddress{1, 2, 3, 4, 5, 6},
		Source:      common.MACAddress{6, 5, 4, 3, 2, 1},
		EtherType:   common.EtherTypeARP,
	}
	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}
