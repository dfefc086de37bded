// Package netio wraps io.Reader with the length-bounded reads this module's
// decoders need when parsing from a stream rather than an in-memory slice.
//
// It is grounded on the read-cursor idiom of common.PacketBuffer
// (pkg/common/buffer.go): a position that only moves forward, and a
// request that fails outright rather than partially advancing when too
// few bytes remain. BoundedReader adds the length-attribution errors of
// §4.2 in place of a bare io.EOF, and StartLayer lets a decoder re-baseline
// the byte budget for a nested layer (e.g. handing an IPv6 extension
// header chain a reader bounded by the outer header's payload_length).
package netio

import (
	"io"

	"github.com/msandberg/netpkt/pkg/common"
)

// BoundedReader wraps an io.Reader, enforcing a maximum number of bytes
// that may be read before ReadExact starts returning length errors.
type BoundedReader struct {
	r           io.Reader
	maxLen      int
	lenSource   common.LenSource
	layer       common.Layer
	layerOffset int
	readLen     int
}

// NewBoundedReader wraps r, allowing at most maxLen bytes to be read
// before ReadExact fails. lenSource and layer are used to attribute any
// resulting LengthError.
func NewBoundedReader(r io.Reader, maxLen int, lenSource common.LenSource, layer common.Layer) *BoundedReader {
	return &BoundedReader{
		r:         r,
		maxLen:    maxLen,
		lenSource: lenSource,
		layer:     layer,
	}
}

// Remaining returns the number of bytes still readable within the bound.
func (b *BoundedReader) Remaining() int {
	return b.maxLen - b.readLen
}

// ReadExact reads exactly n bytes, or returns a *common.LengthError if
// doing so would exceed the configured bound or the underlying reader
// runs out first.
func (b *BoundedReader) ReadExact(n int) ([]byte, error) {
	if n > b.Remaining() {
		return nil, &common.LengthError{
			RequiredLen:      n,
			Len:              b.Remaining(),
			LenSource:        b.lenSource,
			Layer:            b.layer,
			LayerStartOffset: b.layerOffset,
		}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, &common.LengthError{
			RequiredLen:      n,
			Len:              b.Remaining(),
			LenSource:        b.lenSource,
			Layer:            b.layer,
			LayerStartOffset: b.layerOffset,
		}
	}
	b.readLen += n
	return buf, nil
}

// StartLayer re-baselines the reader for a nested layer: the bytes
// already consumed become the new layer's start offset, maxLen shrinks
// by however much of the outer budget those bytes used up, and the
// layer tag used for subsequent length errors changes to layer. A
// nested layer's Remaining() is therefore what's left of the outer
// bound, never the original full budget.
func (b *BoundedReader) StartLayer(layer common.Layer) {
	b.layerOffset += b.readLen
	b.maxLen -= b.readLen
	b.readLen = 0
	b.layer = layer
}

// SetLenSource updates the LenSource attributed to future length errors,
// used when a nested layer's budget comes from a different header field
// than the outer one (e.g. an IPv6 extension chain switching from
// payload_length to a hop-by-hop header's own length byte).
func (b *BoundedReader) SetLenSource(source common.LenSource) {
	b.lenSource = source
}
