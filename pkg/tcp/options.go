package tcp

import (
	"encoding/binary"
	"fmt"
)

// Option is a single decoded TCP option: Data excludes the kind and
// length bytes.
type Option struct {
	Kind uint8
	Data []byte
}

// OptionIterator walks a TCP options buffer one option at a time.
// Unlike building a map of every option up front, a malformed option
// mid-stream does not discard the options already seen: it surfaces
// as a terminal error item from Next, after which the iterator is
// exhausted.
type OptionIterator struct {
	data []byte
	pos  int
	done bool
}

// NewOptionIterator returns an iterator over the options bytes following
// a segment's fixed 20-byte header (Segment.Options).
func NewOptionIterator(data []byte) *OptionIterator {
	return &OptionIterator{data: data}
}

// Next returns the next option, including single-byte NOP and the
// terminal EOL padding byte as their own items. ok is false once the
// list is exhausted, either by running off the end of the buffer or
// by yielding an EOL; err is non-nil only on the terminal item
// produced by a malformed option, in which case ok is still true for
// that one call so the caller can observe the error before stopping.
func (it *OptionIterator) Next() (opt Option, err error, ok bool) {
	if it.done {
		return Option{}, nil, false
	}

	if it.pos >= len(it.data) {
		it.done = true
		return Option{}, nil, false
	}

	kind := it.data[it.pos]

	if kind == OptionKindEOL {
		it.pos++
		it.done = true
		return Option{Kind: OptionKindEOL}, nil, true
	}

	if kind == OptionKindNOP {
		it.pos++
		return Option{Kind: OptionKindNOP}, nil, true
	}

	if it.pos+1 >= len(it.data) {
		it.done = true
		return Option{}, fmt.Errorf("tcp: incomplete option at offset %d", it.pos), true
	}

	length := int(it.data[it.pos+1])
	if length < 2 || it.pos+length > len(it.data) {
		it.done = true
		return Option{}, fmt.Errorf("tcp: invalid option length %d at offset %d", length, it.pos), true
	}

	opt = Option{Kind: kind, Data: it.data[it.pos+2 : it.pos+length]}
	it.pos += length
	return opt, nil, true
}

// find scans the option list for the first occurrence of kind, stopping
// early (and surfacing the error) if a malformed option is hit first.
func find(data []byte, kind uint8) (Option, bool, error) {
	it := NewOptionIterator(data)
	for {
		opt, err, ok := it.Next()
		if err != nil {
			return Option{}, false, err
		}
		if !ok {
			return Option{}, false, nil
		}
		if opt.Kind == kind {
			return opt, true, nil
		}
	}
}

// BuildMSSOption builds a Maximum Segment Size option.
func BuildMSSOption(mss uint16) []byte {
	opt := make([]byte, 4)
	opt[0] = OptionKindMSS
	opt[1] = 4
	binary.BigEndian.PutUint16(opt[2:4], mss)
	return opt
}

// BuildWindowScaleOption builds a Window Scale option.
func BuildWindowScaleOption(shift uint8) []byte {
	return []byte{OptionKindWindowScale, 3, shift}
}

// BuildTimestampOption builds a Timestamp option.
func BuildTimestampOption(tsVal, tsEcr uint32) []byte {
	opt := make([]byte, 10)
	opt[0] = OptionKindTimestamp
	opt[1] = 10
	binary.BigEndian.PutUint32(opt[2:6], tsVal)
	binary.BigEndian.PutUint32(opt[6:10], tsEcr)
	return opt
}

// BuildSACKPermittedOption builds a SACK Permitted option.
func BuildSACKPermittedOption() []byte {
	return []byte{OptionKindSACKPermitted, 2}
}

// SACKBlock represents a single SACK block.
type SACKBlock struct {
	LeftEdge  uint32
	RightEdge uint32
}

// BuildSACKOption builds a SACK option with the given blocks.
func BuildSACKOption(blocks []SACKBlock) []byte {
	if len(blocks) == 0 || len(blocks) > 4 {
		return nil // SACK can have at most 4 blocks
	}

	length := 2 + len(blocks)*8
	opt := make([]byte, length)
	opt[0] = OptionKindSACK
	opt[1] = uint8(length)

	offset := 2
	for _, block := range blocks {
		binary.BigEndian.PutUint32(opt[offset:offset+4], block.LeftEdge)
		binary.BigEndian.PutUint32(opt[offset+4:offset+8], block.RightEdge)
		offset += 8
	}

	return opt
}

// GetMSS extracts the MSS value from options, returning DefaultMSS if the
// option is absent.
func (s *Segment) GetMSS() (uint16, error) {
	opt, found, err := find(s.Options, OptionKindMSS)
	if err != nil {
		return DefaultMSS, err
	}
	if !found {
		return DefaultMSS, nil
	}
	if len(opt.Data) != 2 {
		return DefaultMSS, fmt.Errorf("invalid MSS option length: %d", len(opt.Data))
	}
	return binary.BigEndian.Uint16(opt.Data), nil
}

// GetWindowScale extracts the window scale value from options.
func (s *Segment) GetWindowScale() (uint8, error) {
	opt, found, err := find(s.Options, OptionKindWindowScale)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("window scale option not found")
	}
	if len(opt.Data) != 1 {
		return 0, fmt.Errorf("invalid window scale option length: %d", len(opt.Data))
	}
	return opt.Data[0], nil
}

// GetTimestamp extracts timestamp values from options.
func (s *Segment) GetTimestamp() (tsVal, tsEcr uint32, err error) {
	opt, found, err := find(s.Options, OptionKindTimestamp)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, fmt.Errorf("timestamp option not found")
	}
	if len(opt.Data) != 8 {
		return 0, 0, fmt.Errorf("invalid timestamp option length: %d", len(opt.Data))
	}
	return binary.BigEndian.Uint32(opt.Data[0:4]), binary.BigEndian.Uint32(opt.Data[4:8]), nil
}

// GetSACKBlocks extracts SACK blocks from options.
func (s *Segment) GetSACKBlocks() ([]SACKBlock, error) {
	opt, found, err := find(s.Options, OptionKindSACK)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("SACK option not found")
	}
	if len(opt.Data)%8 != 0 {
		return nil, fmt.Errorf("invalid SACK option length: %d", len(opt.Data))
	}

	numBlocks := len(opt.Data) / 8
	blocks := make([]SACKBlock, numBlocks)
	for i := 0; i < numBlocks; i++ {
		off := i * 8
		blocks[i].LeftEdge = binary.BigEndian.Uint32(opt.Data[off : off+4])
		blocks[i].RightEdge = binary.BigEndian.Uint32(opt.Data[off+4 : off+8])
	}
	return blocks, nil
}

// HasSACKPermitted checks if the SACK Permitted option is present.
func (s *Segment) HasSACKPermitted() bool {
	_, found, err := find(s.Options, OptionKindSACKPermitted)
	return err == nil && found
}
