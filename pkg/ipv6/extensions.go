package ipv6

import (
	"github.com/msandberg/netpkt/pkg/common"
	"github.com/msandberg/netpkt/pkg/ipv4"
)

// ExtensionKind tags which variant an Extension holds.
type ExtensionKind int

const (
	ExtHopByHop ExtensionKind = iota
	ExtRouting
	ExtDestinationOptions
	ExtFragment
	ExtAuth
	ExtMobility
	ExtHIP
	ExtSHIM6
)

func (k ExtensionKind) String() string {
	switch k {
	case ExtHopByHop:
		return "HopByHop"
	case ExtRouting:
		return "Routing"
	case ExtDestinationOptions:
		return "DestinationOptions"
	case ExtFragment:
		return "Fragment"
	case ExtAuth:
		return "Auth"
	case ExtMobility:
		return "Mobility"
	case ExtHIP:
		return "HIP"
	case ExtSHIM6:
		return "SHIM6"
	default:
		return "Unknown"
	}
}

// Extension is one decoded link in the IPv6 extension header chain. Only
// the field matching Kind is populated.
type Extension struct {
	Kind               ExtensionKind
	NextHeader         common.Protocol
	Bytes              []byte
	HopByHop           *RawExtHeader
	Routing            *RawExtHeader
	DestinationOptions *RawExtHeader
	Fragment           *FragmentHeader
	Auth               *ipv4.AuthHeader
	Mobility           *RawExtHeader
	HIP                *RawExtHeader
	SHIM6              *RawExtHeader
}

// ExtensionIterator walks the extension header chain following a base
// IPv6 header, stopping as soon as it reaches a protocol number that isn't
// an extension header (the upper-layer payload).
type ExtensionIterator struct {
	next   common.Protocol
	data   []byte
	sawAny bool
}

// NewExtensionIterator starts walking data (the bytes following the 40-byte
// base header) at firstHeader (the base header's NextHeader field).
func NewExtensionIterator(firstHeader common.Protocol, data []byte) *ExtensionIterator {
	return &ExtensionIterator{next: firstHeader, data: data}
}

// Done reports whether the chain has reached the upper-layer payload.
func (it *ExtensionIterator) Done() bool {
	return !common.IsIPv6ExtensionHeader(it.next)
}

// PayloadProtocol returns the protocol number of the upper-layer payload
// once Done reports true.
func (it *ExtensionIterator) PayloadProtocol() common.Protocol { return it.next }

// Payload returns the remaining bytes once Done reports true.
func (it *ExtensionIterator) Payload() []byte { return it.data }

// Next decodes the next extension header in the chain. ok is false once
// Done() would report true; callers should stop calling Next at that point
// and use PayloadProtocol/Payload instead.
func (it *ExtensionIterator) Next() (ext Extension, ok bool, err error) {
	if it.Done() {
		return Extension{}, false, nil
	}

	if it.next == common.ProtocolHopByHop && it.sawAny {
		return Extension{}, false, &common.ContentError{
			Layer:   common.LayerIPv6HopByHopHeader,
			Message: "hop-by-hop options header must be the first extension header",
		}
	}

	kind, nextField, rawErr := it.decodeOne()
	if rawErr != nil {
		return Extension{}, false, rawErr
	}

	it.sawAny = true
	it.next = nextField
	return kind, true, nil
}

func (it *ExtensionIterator) decodeOne() (Extension, common.Protocol, error) {
	switch it.next {
	case common.ProtocolHopByHop, common.ProtocolDstOpts, common.ProtocolRouting,
		common.ProtocolMobility, common.ProtocolHIP, common.ProtocolShim6:
		sl, rest, err := RawExtHeaderFromSlice(it.data)
		if err != nil {
			return Extension{}, 0, err
		}
		hdr := sl.ToHeader()
		it.data = rest
		return rawExtension(it.next, hdr), hdr.NextHeader, nil

	case common.ProtocolFragment:
		sl, rest, err := FragmentHeaderFromSlice(it.data)
		if err != nil {
			return Extension{}, 0, err
		}
		hdr := sl.ToHeader()
		it.data = rest
		return Extension{Kind: ExtFragment, NextHeader: hdr.NextHeader, Fragment: &hdr}, hdr.NextHeader, nil

	case common.ProtocolAuth:
		sl, rest, err := ipv4.AuthFromSlice(it.data)
		if err != nil {
			return Extension{}, 0, err
		}
		hdr, err := sl.ToHeader()
		if err != nil {
			return Extension{}, 0, err
		}
		it.data = rest
		return Extension{Kind: ExtAuth, NextHeader: hdr.NextHeader, Auth: &hdr}, hdr.NextHeader, nil

	default:
		return Extension{}, 0, &common.ContentError{
			Layer:   common.LayerIPv6ExtHeader,
			Message: "unreachable: decodeOne called on a non-extension protocol",
		}
	}
}

func rawExtension(protocol common.Protocol, hdr RawExtHeader) Extension {
	ext := Extension{NextHeader: hdr.NextHeader, Bytes: hdr.Data}
	switch protocol {
	case common.ProtocolHopByHop:
		ext.Kind = ExtHopByHop
		ext.HopByHop = &hdr
	case common.ProtocolRouting:
		ext.Kind = ExtRouting
		ext.Routing = &hdr
	case common.ProtocolDstOpts:
		ext.Kind = ExtDestinationOptions
		ext.DestinationOptions = &hdr
	case common.ProtocolMobility:
		ext.Kind = ExtMobility
		ext.Mobility = &hdr
	case common.ProtocolHIP:
		ext.Kind = ExtHIP
		ext.HIP = &hdr
	case common.ProtocolShim6:
		ext.Kind = ExtSHIM6
		ext.SHIM6 = &hdr
	}
	return ext
}

// WalkExtensions decodes every extension header in the chain eagerly,
// returning the decoded list plus the final upper-layer protocol and
// payload. Length errors are re-tagged against the IPv6 payload field and
// offset by the 40-byte base header, matching how errors from nested
// layers are attributed elsewhere in this module.
func WalkExtensions(firstHeader common.Protocol, data []byte) ([]Extension, common.Protocol, []byte, error) {
	it := NewExtensionIterator(firstHeader, data)
	var exts []Extension
	for !it.Done() {
		ext, ok, err := it.Next()
		if err != nil {
			if lenErr, isLen := err.(*common.LengthError); isLen {
				return nil, 0, nil, lenErr.WithLayer(common.LayerIPv6Packet, common.LenSourceIPv6HeaderPayloadLen).AddOffset(HeaderLength)
			}
			return nil, 0, nil, err
		}
		if !ok {
			break
		}
		exts = append(exts, ext)
	}
	return exts, it.PayloadProtocol(), it.Payload(), nil
}
