package common

import "fmt"

// LenSource identifies which field's value produced the length
// expectation that a LengthError failed to meet.
type LenSource int

const (
	LenSourceSlice LenSource = iota
	LenSourceIPv4HeaderTotalLen
	LenSourceIPv6HeaderPayloadLen
	LenSourceUDPHeaderLen
	LenSourceTCPHeaderLen
	LenSourceMACsecShortLength
	LenSourceARPAddrLengths
)

func (s LenSource) String() string {
	switch s {
	case LenSourceSlice:
		return "slice"
	case LenSourceIPv4HeaderTotalLen:
		return "IPv4 header total_length"
	case LenSourceIPv6HeaderPayloadLen:
		return "IPv6 header payload_length"
	case LenSourceUDPHeaderLen:
		return "UDP header length"
	case LenSourceTCPHeaderLen:
		return "TCP header data offset"
	case LenSourceMACsecShortLength:
		return "MACsec short_length"
	case LenSourceARPAddrLengths:
		return "ARP hardware/protocol address lengths"
	default:
		return "unknown"
	}
}

// Layer names the protocol layer a LengthError (or other structured
// error) was raised while decoding. The member list mirrors
// etherparse's err::Layer enum (original_source/etherparse/src/err/layer.rs)
// generalized with the additional layers this module decodes.
type Layer int

const (
	LayerLinuxSLLHeader Layer = iota
	LayerEthernet2Header
	LayerEtherPayload
	LayerVLANHeader
	LayerMACsecHeader
	LayerIPHeader
	LayerIPv4Header
	LayerIPv4Packet
	LayerIPAuthHeader
	LayerIPv6Header
	LayerIPv6Packet
	LayerIPv6ExtHeader
	LayerIPv6HopByHopHeader
	LayerIPv6DestOptionsHeader
	LayerIPv6RouteHeader
	LayerIPv6FragHeader
	LayerUDPHeader
	LayerUDPPayload
	LayerTCPHeader
	LayerICMPv4
	LayerICMPv6
	LayerARPHeader
	LayerARPPayload
)

// errorTitle mirrors etherparse's Layer::error_title(): a short, capitalized
// phrase suitable for prefixing an error message.
func (l Layer) errorTitle() string {
	switch l {
	case LayerLinuxSLLHeader:
		return "Linux SLL Header"
	case LayerEthernet2Header:
		return "Ethernet II Header"
	case LayerEtherPayload:
		return "Ethernet Payload"
	case LayerVLANHeader:
		return "VLAN Header"
	case LayerMACsecHeader:
		return "MACsec Header"
	case LayerIPHeader:
		return "IP Header"
	case LayerIPv4Header:
		return "IPv4 Header"
	case LayerIPv4Packet:
		return "IPv4 Packet"
	case LayerIPAuthHeader:
		return "IP Authentication Header"
	case LayerIPv6Header:
		return "IPv6 Header"
	case LayerIPv6Packet:
		return "IPv6 Packet"
	case LayerIPv6ExtHeader:
		return "IPv6 Extension Header"
	case LayerIPv6HopByHopHeader:
		return "IPv6 Hop-by-Hop Header"
	case LayerIPv6DestOptionsHeader:
		return "IPv6 Destination Options Header"
	case LayerIPv6RouteHeader:
		return "IPv6 Routing Header"
	case LayerIPv6FragHeader:
		return "IPv6 Fragment Header"
	case LayerUDPHeader:
		return "UDP Header"
	case LayerUDPPayload:
		return "UDP Payload"
	case LayerTCPHeader:
		return "TCP Header"
	case LayerICMPv4:
		return "ICMPv4 Message"
	case LayerICMPv6:
		return "ICMPv6 Message"
	case LayerARPHeader:
		return "ARP Header"
	case LayerARPPayload:
		return "ARP Payload"
	default:
		return "Unknown Layer"
	}
}

func (l Layer) String() string { return l.errorTitle() }

// LengthError reports that a layer's decoder needed RequiredLen bytes but
// only Len were available, per spec §4.2. LenSource records which field
// produced the expectation and Layer/LayerStartOffset attribute the error
// to a byte range in the original outermost buffer.
type LengthError struct {
	RequiredLen      int
	Len              int
	LenSource        LenSource
	Layer            Layer
	LayerStartOffset int
}

func (e *LengthError) Error() string {
	if e.RequiredLen > e.Len {
		return fmt.Sprintf(
			"%s at offset %d: %d bytes required (per %s) but only %d available",
			e.Layer.errorTitle(), e.LayerStartOffset, e.RequiredLen, e.LenSource, e.Len,
		)
	}
	return fmt.Sprintf(
		"%s at offset %d: length %d is inconsistent with %d available bytes (per %s)",
		e.Layer.errorTitle(), e.LayerStartOffset, e.RequiredLen, e.Len, e.LenSource,
	)
}

// AddOffset returns a new LengthError with LayerStartOffset shifted by n.
// It is pure addition with no clamping, so
// e.AddOffset(a).AddOffset(b) == e.AddOffset(a+b) holds for all a, b.
func (e *LengthError) AddOffset(n int) *LengthError {
	return &LengthError{
		RequiredLen:      e.RequiredLen,
		Len:              e.Len,
		LenSource:        e.LenSource,
		Layer:            e.Layer,
		LayerStartOffset: e.LayerStartOffset + n,
	}
}

// WithLayer returns a copy of the error re-tagged to a different layer and
// length source, used when an error surfaces through an outer container
// (e.g. an auth header nested inside an IPv4 payload reporting itself
// against the IPv4 total_length field instead of the raw slice length).
func (e *LengthError) WithLayer(layer Layer, source LenSource) *LengthError {
	return &LengthError{
		RequiredLen:      e.RequiredLen,
		Len:              e.Len,
		LenSource:        source,
		Layer:            layer,
		LayerStartOffset: e.LayerStartOffset,
	}
}
