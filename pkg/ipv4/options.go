package ipv4

import (
	"fmt"

	"github.com/msandberg/netpkt/pkg/common"
)

// MaxOptionsLen is the largest possible IPv4 options block: a maximum
// IHL of 15 leaves 60-20 = 40 bytes for options.
const MaxOptionsLen = MaxHeaderLen - MinHeaderLen

// Options holds an IPv4 header's option bytes inline, avoiding a heap
// allocation for the overwhelmingly common case of no options at all.
type Options struct {
	data [MaxOptionsLen]byte
	Len  uint8
}

// OptionsFromSlice copies b into an Options value. b's length must be a
// multiple of 4 (IPv4 options are word-aligned) and not exceed
// MaxOptionsLen; both are content errors rather than length errors,
// since the caller already has all of b in hand.
func OptionsFromSlice(b []byte) (Options, error) {
	if len(b) > MaxOptionsLen {
		return Options{}, &common.ContentError{
			Layer:   common.LayerIPv4Header,
			Message: fmt.Sprintf("options length %d exceeds the maximum of %d", len(b), MaxOptionsLen),
		}
	}
	if len(b)%4 != 0 {
		return Options{}, &common.ContentError{
			Layer:   common.LayerIPv4Header,
			Message: fmt.Sprintf("options length %d is not a multiple of 4", len(b)),
		}
	}
	var o Options
	copy(o.data[:], b)
	o.Len = uint8(len(b))
	return o, nil
}

// Bytes returns the option bytes.
func (o Options) Bytes() []byte {
	return o.data[:o.Len]
}
