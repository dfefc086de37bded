package ipv4

import (
	"testing"
	"time"

	"github.com/msandberg/netpkt/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragHeader(id uint16, offset8 uint32, mf bool) Header {
	h := testHeader()
	h.Identification = id
	h.MoreFragments = mf
	h.FragmentOffset = common.NewFragmentOffset13Unchecked(offset8)
	return h
}

func TestReassemblyTable_CompletesAcrossFragments(t *testing.T) {
	tbl := NewDefaultReassemblyTable()

	_, complete, err := tbl.Add(fragHeader(1, 0, true), sequence(0, 16))
	require.NoError(t, err)
	assert.False(t, complete)

	data, complete, err := tbl.Add(fragHeader(1, 2, false), sequence(16, 16))
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, sequence(0, 32), data)

	assert.Equal(t, 0, tbl.Size())
}

func TestReassemblyTable_SeparatesByIdentification(t *testing.T) {
	tbl := NewDefaultReassemblyTable()

	_, complete, err := tbl.Add(fragHeader(1, 0, true), sequence(0, 16))
	require.NoError(t, err)
	assert.False(t, complete)
	_, complete, err = tbl.Add(fragHeader(2, 0, true), sequence(100, 16))
	require.NoError(t, err)
	assert.False(t, complete)

	assert.Equal(t, 2, tbl.Size())
}

func TestReassemblyTable_Cleanup(t *testing.T) {
	tbl := NewReassemblyTable(1 * time.Millisecond)
	_, _, err := tbl.Add(fragHeader(1, 0, true), sequence(0, 16))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	removed := tbl.Cleanup()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, tbl.Size())
}
