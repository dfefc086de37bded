package common

import "fmt"

// ValueType identifies which bounded field a ValueTooBigError refers to.
type ValueType int

const (
	ValueTypeDSCP ValueType = iota
	ValueTypeECN
	ValueTypeFragmentOffset
	ValueTypeFlowLabel
	ValueTypeVLANID
	ValueTypePCP
	ValueTypeMACsecShortLen
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeDSCP:
		return "DSCP"
	case ValueTypeECN:
		return "ECN"
	case ValueTypeFragmentOffset:
		return "FragmentOffset"
	case ValueTypeFlowLabel:
		return "FlowLabel"
	case ValueTypeVLANID:
		return "VLANID"
	case ValueTypePCP:
		return "PCP"
	case ValueTypeMACsecShortLen:
		return "MACsecShortLen"
	default:
		return "Unknown"
	}
}

// ValueTooBigError is returned by the checked constructor of every bounded
// integer newtype in this package when the supplied value exceeds the
// field's wire width.
type ValueTooBigError struct {
	Actual     uint32
	MaxAllowed uint32
	ValueType  ValueType
}

func (e *ValueTooBigError) Error() string {
	return fmt.Sprintf("%s value %d exceeds maximum of %d", e.ValueType, e.Actual, e.MaxAllowed)
}

// DSCP is the 6-bit Differentiated Services Code Point.
type DSCP uint8

// MaxDSCP is the largest value a 6-bit DSCP field can hold.
const MaxDSCP = 0x3F

// NewDSCP checks v against MaxDSCP before constructing a DSCP.
func NewDSCP(v uint32) (DSCP, error) {
	if v > MaxDSCP {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxDSCP, ValueType: ValueTypeDSCP}
	}
	return DSCP(v), nil
}

// NewDSCPUnchecked constructs a DSCP without range checking. Callers must
// have already masked the value to 6 bits (e.g. via a bitwise AND against
// a decoded byte), the way every decoder in this module does.
func NewDSCPUnchecked(v uint32) DSCP { return DSCP(v) }

// Value returns the DSCP as its natural width.
func (d DSCP) Value() uint8 { return uint8(d) }

func (d DSCP) String() string { return fmt.Sprintf("DSCP(%d)", uint8(d)) }

// ECN is the 2-bit Explicit Congestion Notification field.
type ECN uint8

// MaxECN is the largest value a 2-bit ECN field can hold.
const MaxECN = 0x3

func NewECN(v uint32) (ECN, error) {
	if v > MaxECN {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxECN, ValueType: ValueTypeECN}
	}
	return ECN(v), nil
}

func NewECNUnchecked(v uint32) ECN { return ECN(v) }

func (e ECN) Value() uint8 { return uint8(e) }

func (e ECN) String() string { return fmt.Sprintf("ECN(%d)", uint8(e)) }

// FragmentOffset13 is the 13-bit IPv4 fragment offset field, measured in
// units of 8 bytes. Grounded directly on etherparse's IpFragOffset
// newtype (internet/ip_frag_offset.rs in original_source/): same checked/
// unchecked constructor pair, same MAX constant.
type FragmentOffset13 uint16

// MaxFragmentOffset13 is 2^13 - 1, the largest value 13 bits can hold.
const MaxFragmentOffset13 = 0b0001_1111_1111_1111

// ZeroFragmentOffset13 is the FragmentOffset13 zero value, exported for
// parity with etherparse's IpFragOffset::ZERO.
const ZeroFragmentOffset13 FragmentOffset13 = 0

func NewFragmentOffset13(v uint32) (FragmentOffset13, error) {
	if v > MaxFragmentOffset13 {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxFragmentOffset13, ValueType: ValueTypeFragmentOffset}
	}
	return FragmentOffset13(v), nil
}

func NewFragmentOffset13Unchecked(v uint32) FragmentOffset13 { return FragmentOffset13(v) }

func (f FragmentOffset13) Value() uint16 { return uint16(f) }

// InBytes converts the 8-byte-unit offset to a byte count.
func (f FragmentOffset13) InBytes() uint32 { return uint32(f) * 8 }

func (f FragmentOffset13) String() string { return fmt.Sprintf("FragmentOffset13(%d)", uint16(f)) }

// FlowLabel20 is the 20-bit IPv6 flow label field.
type FlowLabel20 uint32

// MaxFlowLabel20 is 2^20 - 1.
const MaxFlowLabel20 = 0xFFFFF

func NewFlowLabel20(v uint32) (FlowLabel20, error) {
	if v > MaxFlowLabel20 {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxFlowLabel20, ValueType: ValueTypeFlowLabel}
	}
	return FlowLabel20(v), nil
}

func NewFlowLabel20Unchecked(v uint32) FlowLabel20 { return FlowLabel20(v) }

func (f FlowLabel20) Value() uint32 { return uint32(f) }

func (f FlowLabel20) String() string { return fmt.Sprintf("FlowLabel20(%d)", uint32(f)) }

// VLANID12 is the 12-bit 802.1Q VLAN identifier.
type VLANID12 uint16

// MaxVLANID12 is 2^12 - 1 (4095).
const MaxVLANID12 = 0xFFF

func NewVLANID12(v uint32) (VLANID12, error) {
	if v > MaxVLANID12 {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxVLANID12, ValueType: ValueTypeVLANID}
	}
	return VLANID12(v), nil
}

func NewVLANID12Unchecked(v uint32) VLANID12 { return VLANID12(v) }

func (v VLANID12) Value() uint16 { return uint16(v) }

func (v VLANID12) String() string { return fmt.Sprintf("VLANID12(%d)", uint16(v)) }

// PCP3 is the 3-bit 802.1Q Priority Code Point.
type PCP3 uint8

// MaxPCP3 is 2^3 - 1 (7).
const MaxPCP3 = 0x7

func NewPCP3(v uint32) (PCP3, error) {
	if v > MaxPCP3 {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxPCP3, ValueType: ValueTypePCP}
	}
	return PCP3(v), nil
}

func NewPCP3Unchecked(v uint32) PCP3 { return PCP3(v) }

func (p PCP3) Value() uint8 { return uint8(p) }

func (p PCP3) String() string { return fmt.Sprintf("PCP3(%d)", uint8(p)) }

// MACsecShortLen6 is the 6-bit "short length" field in a MACsec SecTag.
// A value of 0 means the payload is 48 bytes or longer and the real
// length must be taken from the enclosing frame.
type MACsecShortLen6 uint8

// MaxMACsecShortLen6 is 2^6 - 1 (63).
const MaxMACsecShortLen6 = 0x3F

func NewMACsecShortLen6(v uint32) (MACsecShortLen6, error) {
	if v > MaxMACsecShortLen6 {
		return 0, &ValueTooBigError{Actual: v, MaxAllowed: MaxMACsecShortLen6, ValueType: ValueTypeMACsecShortLen}
	}
	return MACsecShortLen6(v), nil
}

func NewMACsecShortLen6Unchecked(v uint32) MACsecShortLen6 { return MACsecShortLen6(v) }

func (m MACsecShortLen6) Value() uint8 { return uint8(m) }

func (m MACsecShortLen6) String() string { return fmt.Sprintf("MACsecShortLen6(%d)", uint8(m)) }
