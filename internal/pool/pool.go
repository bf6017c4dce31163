// Package pool hands out buffers from one contiguous arena the way a
// firmware pool allocator does: bump allocation, explicit frees, no reuse
// of freed space. It exists so a test firmware can issue real, stable
// addresses whose alignment it fully controls.
package pool

import "unsafe"

// Arena is a bump allocator over a single reserved region. Callers are
// strictly serial, matching the firmware surface it backs.
type Arena struct {
	mem  []byte
	base uintptr
	off  int
	live map[uintptr]int // first-byte address -> allocation length
}

// New reserves an arena of the given byte size. The region starts page
// aligned, so alignment below page size is decided by arena offsets
// alone.
func New(size int) (*Arena, error) {
	mem, err := reserve(size)
	if err != nil {
		return nil, err
	}
	return &Arena{
		mem:  mem,
		base: address(mem),
		live: make(map[uintptr]int),
	}, nil
}

// Alloc carves size bytes at the next 8-aligned offset. Returns nil when
// the arena cannot fit the request; freed space is never reclaimed.
func (a *Arena) Alloc(size int) []byte {
	return a.AllocOffset(size, 0)
}

// AllocOffset carves size bytes at the next 8-aligned offset plus skew.
// A non-zero skew lands the buffer on a deliberately misaligned address.
func (a *Arena) AllocOffset(size, skew int) []byte {
	if size <= 0 {
		return nil
	}
	off := alignUp(a.off, 8) + skew
	if off+size > len(a.mem) {
		return nil
	}
	buf := a.mem[off : off+size : off+size]
	a.live[address(buf)] = size
	a.off = off + size
	return buf
}

// Free returns an allocation to the arena. Reports false for a buffer the
// arena does not currently own: foreign memory, or a second free. Freeing
// the newest allocation rolls the arena back over it, so alloc/free
// cycles do not march the offset forward forever; older frees reclaim
// nothing.
func (a *Arena) Free(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	addr := address(buf)
	size, ok := a.live[addr]
	if !ok {
		return false
	}
	delete(a.live, addr)
	if off := int(addr - a.base); off+size == a.off {
		a.off = off
	}
	return true
}

// Outstanding returns the number of live allocations.
func (a *Arena) Outstanding() int {
	return len(a.live)
}

// Close releases the reserved region. Every buffer the arena handed out
// dies with it.
func (a *Arena) Close() error {
	mem := a.mem
	a.mem = nil
	a.live = nil
	return release(mem)
}

// Aligned checks whether the passed byte slice is aligned
// (align must be a power of two)
func Aligned(buf []byte, align int) bool {
	return uintptr(unsafe.Pointer(&buf[0]))&uintptr(align-1) == 0
}

func address(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0]))
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
