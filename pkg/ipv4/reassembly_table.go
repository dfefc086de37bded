package ipv4

import (
	"sync"
	"time"

	"github.com/msandberg/netpkt/pkg/common"
)

// FragmentTimeout is the maximum time a ReassemblyTable waits for all
// fragments of one datagram before discarding it.
const FragmentTimeout = 60 * time.Second

// FragmentKey identifies the set of fragments belonging to one
// original datagram. Identification is only unique per (src, dst,
// protocol) tuple, per RFC 791 §3.2.
type FragmentKey struct {
	Source         common.IPv4Address
	Destination    common.IPv4Address
	Protocol       common.Protocol
	Identification uint16
}

type tableEntry struct {
	buf      *ReassemblyBuffer
	lastSeen time.Time
}

// ReassemblyTable is a thread-safe registry of in-progress
// ReassemblyBuffers, one per FragmentKey, with idle-entry expiry.
// Adapted from the network repo's Fragmenter, which kept a
// map[FragmentKey]*FragmentEntry swept by a cleanup goroutine; this table
// starts no goroutine (expired entries are dropped only when Cleanup is
// called), and the per-datagram reconstruction itself is delegated to
// ReassemblyBuffer.
type ReassemblyTable struct {
	mu      sync.Mutex
	entries map[FragmentKey]*tableEntry
	timeout time.Duration
}

// NewReassemblyTable creates an empty table with the given per-datagram
// idle timeout.
func NewReassemblyTable(timeout time.Duration) *ReassemblyTable {
	return &ReassemblyTable{
		entries: make(map[FragmentKey]*tableEntry),
		timeout: timeout,
	}
}

// NewDefaultReassemblyTable creates a table using FragmentTimeout.
func NewDefaultReassemblyTable() *ReassemblyTable {
	return NewReassemblyTable(FragmentTimeout)
}

// Add feeds one fragment's header and payload into the table, creating
// a new ReassemblyBuffer if this is the first fragment seen for its
// key. It returns the reassembled payload and true once the datagram's
// buffer reports complete; otherwise (nil, false, err) where err is
// only non-nil if the underlying ReassemblyBuffer.Add rejected the
// fragment.
func (t *ReassemblyTable) Add(h Header, payload []byte) ([]byte, bool, error) {
	key := FragmentKey{
		Source:         h.Source,
		Destination:    h.Destination,
		Protocol:       h.Protocol,
		Identification: h.Identification,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		entry = &tableEntry{buf: NewReassemblyBuffer(h.Protocol)}
		t.entries[key] = entry
	}
	entry.lastSeen = time.Now()

	byteOffset := uint16(h.FragmentOffset.Value()) * 8
	if err := entry.buf.Add(byteOffset, h.MoreFragments, payload); err != nil {
		return nil, false, err
	}

	if !entry.buf.IsComplete() {
		return nil, false, nil
	}

	data := entry.buf.Data()
	delete(t.entries, key)
	return data, true, nil
}

// Cleanup removes entries that have not seen a fragment within the
// table's timeout, and returns how many were removed. Callers should
// invoke this periodically (e.g. from a time.Ticker loop) to bound
// memory use for datagrams that never complete.
func (t *ReassemblyTable) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	now := time.Now()
	for key, entry := range t.entries {
		if now.Sub(entry.lastSeen) > t.timeout {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of datagrams currently being reassembled.
func (t *ReassemblyTable) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
