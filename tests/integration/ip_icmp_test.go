package integration

import (
	"testing"

	"github.com/msandberg/netpkt/pkg/common"
	"github.com/msandberg/netpkt/pkg/icmpv4"
	"github.com/msandberg/netpkt/pkg/ipv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fragPiece struct {
	offset uint16
	data   []byte
	more   bool
}

// fragmentPayload splits payload into IPv4 fragments of at most
// maxFragPayload bytes each, rounded down to a multiple of 16: the wire
// fragment_offset field counts 8-byte units, and ReassemblyBuffer only
// accepts non-final fragments whose length is a multiple of 16. pkg/ipv4 only
// exposes receive-side reassembly (ReassemblyBuffer, ReassemblyTable);
// building fragments on send is test-local since nothing else in this
// module needs it.
func fragmentPayload(payload []byte, maxFragPayload int) []fragPiece {
	unit := maxFragPayload - (maxFragPayload % 16)
	var frags []fragPiece
	for start := 0; start < len(payload); start += unit {
		end := start + unit
		if end > len(payload) {
			end = len(payload)
		}
		frags = append(frags, fragPiece{
			offset: uint16(start),
			data:   payload[start:end],
			more:   end < len(payload),
		})
	}
	return frags
}

func TestIPWithICMP(t *testing.T) {
	src := common.IPv4Address{192, 168, 1, 1}
	dst := common.IPv4Address{192, 168, 1, 2}

	icmpMsg := icmpv4.NewEchoRequest(1, 1, []byte("ping"))
	icmpData, err := icmpMsg.Serialize()
	require.NoError(t, err)

	h := ipv4.NewHeader(src, dst, common.ProtocolICMP)
	packet, err := ipv4.Serialize(h, icmpData)
	require.NoError(t, err)

	sl, payload, _, err := ipv4.FromSlice(packet)
	require.NoError(t, err)
	parsedHeader, err := sl.ToHeader()
	require.NoError(t, err)
	assert.Equal(t, src, parsedHeader.Source)
	assert.Equal(t, dst, parsedHeader.Destination)
	assert.True(t, parsedHeader.VerifyChecksum())

	parsedICMP, err := icmpv4.Parse(payload)
	require.NoError(t, err)
	require.NotNil(t, parsedICMP.Echo)
	assert.Equal(t, uint16(1), parsedICMP.Echo.ID)
	assert.True(t, parsedICMP.VerifyChecksum())
}

func TestPingEchoReplyFlow(t *testing.T) {
	client := common.IPv4Address{10, 0, 0, 1}
	server := common.IPv4Address{10, 0, 0, 2}

	request := icmpv4.NewEchoRequest(77, 1, []byte("hello"))
	reqData, err := request.Serialize()
	require.NoError(t, err)

	reqHeader := ipv4.NewHeader(client, server, common.ProtocolICMP)
	reqPacket, err := ipv4.Serialize(reqHeader, reqData)
	require.NoError(t, err)

	_, payload, _, err := ipv4.FromSlice(reqPacket)
	require.NoError(t, err)
	receivedICMP, err := icmpv4.Parse(payload)
	require.NoError(t, err)
	require.True(t, receivedICMP.IsEchoRequest())

	reply := icmpv4.NewEchoReply(receivedICMP.Echo.ID, receivedICMP.Echo.Sequence, receivedICMP.Data)
	replyData, err := reply.Serialize()
	require.NoError(t, err)

	replyHeader := ipv4.NewHeader(server, client, common.ProtocolICMP)
	replyPacket, err := ipv4.Serialize(replyHeader, replyData)
	require.NoError(t, err)

	sl2, payload2, _, err := ipv4.FromSlice(replyPacket)
	require.NoError(t, err)
	finalHeader, err := sl2.ToHeader()
	require.NoError(t, err)
	finalICMP, err := icmpv4.Parse(payload2)
	require.NoError(t, err)

	assert.Equal(t, client, finalHeader.Destination)
	assert.True(t, finalICMP.IsEchoReply())
	assert.Equal(t, uint16(77), finalICMP.Echo.ID)
	assert.True(t, finalICMP.VerifyChecksum())
}

func TestIPFragmentationWithICMP(t *testing.T) {
	src := common.IPv4Address{172, 16, 0, 1}
	dst := common.IPv4Address{172, 16, 0, 2}

	payload := make([]byte, 3000)
	for i := range payload {
		payload[i] = byte(i % 256)
	}
	icmpMsg := &icmpv4.Message{Type: icmpv4.TypeEchoRequest, Echo: &icmpv4.Echo{ID: 9, Sequence: 1}, Data: payload}
	icmpData, err := icmpMsg.Serialize()
	require.NoError(t, err)

	const ident = uint16(4242)
	frags := fragmentPayload(icmpData, 1000)
	require.Greater(t, len(frags), 1, "payload must actually need more than one fragment")

	table := ipv4.NewDefaultReassemblyTable()
	var reassembled []byte
	var sawComplete bool
	for _, f := range frags {
		offset, err := common.NewFragmentOffset13(uint32(f.offset) / 8)
		require.NoError(t, err)

		h := ipv4.NewHeader(src, dst, common.ProtocolICMP)
		h.Identification = ident
		h.FragmentOffset = offset
		h.MoreFragments = f.more

		full, err := ipv4.Serialize(h, f.data)
		require.NoError(t, err)

		sl, fragPayload, _, err := ipv4.FromSlice(full)
		require.NoError(t, err)
		parsedFragHeader, err := sl.ToHeader()
		require.NoError(t, err)

		data, complete, err := table.Add(parsedFragHeader, fragPayload)
		require.NoError(t, err)
		if complete {
			reassembled = data
			sawComplete = true
		}
	}

	require.True(t, sawComplete)
	assert.Equal(t, icmpData, reassembled)

	parsedICMP, err := icmpv4.Parse(reassembled)
	require.NoError(t, err)
	require.NotNil(t, parsedICMP.Echo)
	assert.Equal(t, uint16(9), parsedICMP.Echo.ID)
	assert.True(t, parsedICMP.VerifyChecksum())
}

func TestTTLDecrement(t *testing.T) {
	src := common.IPv4Address{192, 168, 0, 1}
	dst := common.IPv4Address{192, 168, 0, 2}

	h := ipv4.NewHeader(src, dst, common.ProtocolICMP)
	h.TTL = 1

	expired := !h.DecrementTTL()
	assert.True(t, expired)
	assert.Equal(t, uint8(0), h.TTL)

	h.TTL = 5
	expired = !h.DecrementTTL()
	assert.False(t, expired)
	assert.Equal(t, uint8(4), h.TTL)
}

func TestICMPErrorMessages(t *testing.T) {
	unreachable := icmpv4.NewDestinationUnreachable(icmpv4.CodeHostUnreachable, []byte{1, 2, 3, 4})
	data, err := unreachable.Serialize()
	require.NoError(t, err)
	parsed, err := icmpv4.Parse(data)
	require.NoError(t, err)
	require.NotNil(t, parsed.DestUnreachable)
	assert.Equal(t, icmpv4.CodeHostUnreachable, parsed.DestUnreachable.Code)
	assert.True(t, parsed.IsError())

	timeExceeded := icmpv4.NewTimeExceeded(icmpv4.CodeTTLExceeded, []byte{5, 6, 7, 8})
	data, err = timeExceeded.Serialize()
	require.NoError(t, err)
	parsed, err = icmpv4.Parse(data)
	require.NoError(t, err)
	require.NotNil(t, parsed.TimeExceeded)
	assert.Equal(t, icmpv4.CodeTTLExceeded, parsed.TimeExceeded.Code)
	assert.True(t, parsed.IsError())
}
