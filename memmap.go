package exitboot

import (
	"fmt"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"exitboot/efi"
)

// MemoryMap is one owned snapshot of the firmware memory map. The buffer
// behind it belongs to the firmware pool: exactly one of Release (hand it
// back) or a successful exit handshake (firmware's allocator dies with
// boot services) ends its life. Descriptor views stay valid until then.
//
// A snapshot is a point-in-time copy. Firmware does not update it, and its
// Key stops matching firmware bookkeeping as soon as any mutating service
// runs.
type MemoryMap struct {
	h *Handoff

	buf         []byte // pool allocation; buf[:size] holds descriptor records
	size        int
	key         MapKey
	descSize    int
	descVersion uint32
	released    bool
}

func newMemoryMap(h *Handoff, buf []byte, info MapInfo) *MemoryMap {
	return &MemoryMap{
		h:           h,
		buf:         buf,
		size:        info.Size,
		key:         info.Key,
		descSize:    info.DescriptorSize,
		descVersion: info.DescriptorVersion,
	}
}

// Key returns the freshness token firmware issued with this snapshot.
func (m *MemoryMap) Key() MapKey {
	return m.key
}

// Size returns the byte count of map data exactly as firmware reported
// it. Firmware is not required to report a multiple of the descriptor
// stride; trailing bytes short of a full record are ignored by Count and
// At.
func (m *MemoryMap) Size() int {
	return m.size
}

// DescriptorSize returns the stride between descriptor records.
func (m *MemoryMap) DescriptorSize() int {
	return m.descSize
}

// DescriptorVersion returns the descriptor layout revision firmware
// reported.
func (m *MemoryMap) DescriptorVersion() uint32 {
	return m.descVersion
}

// Count returns the number of complete descriptor records in the
// snapshot.
func (m *MemoryMap) Count() int {
	return m.size / m.descSize
}

// Bytes returns the raw map data. The slice aliases the pool buffer and
// dies with the snapshot.
func (m *MemoryMap) Bytes() []byte {
	m.mustLive()
	return m.buf[:m.size]
}

// At returns an in-place view of record i. The pointer aliases the pool
// buffer and dies with the snapshot.
func (m *MemoryMap) At(i int) *efi.MemoryDescriptor {
	m.mustLive()
	if i < 0 || i >= m.Count() {
		panic(fmt.Sprintf("exitboot: descriptor index %d out of range [0, %d)", i, m.Count()))
	}
	return (*efi.MemoryDescriptor)(unsafe.Pointer(&m.buf[i*m.descSize]))
}

// Descriptors returns copies of every complete record. The copies outlive
// the snapshot, at the price of one allocation.
func (m *MemoryMap) Descriptors() []efi.MemoryDescriptor {
	m.mustLive()
	out := make([]efi.MemoryDescriptor, m.Count())
	for i := range out {
		out[i] = *m.At(i)
	}
	return out
}

// Digest returns the xxhash of the map data. Two snapshots digest equal
// iff firmware handed out byte-identical maps, which tells retry loops
// whether the map actually moved between attempts.
func (m *MemoryMap) Digest() uint64 {
	m.mustLive()
	return xxhash.Sum64(m.buf[:m.size])
}

// Release hands the buffer back to the firmware pool. Safe to call more
// than once; only the first call frees. After a successful exit handshake
// Release is a no-op, because the allocator that owns the buffer no
// longer exists.
func (m *MemoryMap) Release() error {
	if m.released {
		return nil
	}
	m.released = true
	buf := m.buf
	m.buf = nil

	m.h.stats.releases.Add(1)
	if status := m.h.fw.FreePool(buf); status.IsError() {
		return fmt.Errorf("%w: free pool returned %s", ErrDeviceError, status)
	}
	return nil
}

// consume marks the snapshot as spent by a successful exit handshake. The
// buffer is deliberately leaked: firmware's pool allocator died with boot
// services, and the memory it handed out is now ordinary loader-owned RAM.
func (m *MemoryMap) consume() {
	m.released = true
	m.buf = nil
}

func (m *MemoryMap) mustLive() {
	if m.buf == nil {
		panic("exitboot: memory map used after release")
	}
}
