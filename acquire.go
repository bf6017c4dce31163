package exitboot

import (
	"fmt"
	"unsafe"

	"exitboot/efi"
)

// AcquireMemoryMap captures a fresh snapshot of the firmware memory map
// along with the key that certifies it. The caller owns the snapshot and
// must Release it unless it is consumed by a successful exit handshake.
//
// Each cycle probes the current map size, allocates with headroom, and
// fetches. A refused fetch means firmware grew the map past the headroom
// in between; the cycle restarts from a fresh probe, up to a fixed bound.
func (h *Handoff) AcquireMemoryMap() (*MemoryMap, error) {
	if !h.fw.Ready() {
		h.log.Critical("boot services are not available")
		return nil, ErrNotReady
	}

	retry := attempts{max: maxMapAttempts}
	for retry.next() {
		m, status, err := h.acquireOnce(retry.n)
		if err != nil {
			return nil, err
		}
		if m != nil {
			h.stats.mapsAcquired.Add(1)
			return m, nil
		}

		// Fetch refused. Sizes and keys from this cycle are dead; the next
		// cycle starts over with a fresh probe and a fresh allocation.
		retry.fail(status)
		h.stats.mapRetries.Add(1)
	}

	h.log.Critical("memory map acquisition exhausted",
		"attempts", retry.max, "lastStatus", retry.last)
	return nil, fmt.Errorf("%w: %d attempts, last status %s",
		ErrExhausted, retry.max, retry.last)
}

// acquireOnce runs a single probe/allocate/fetch/validate cycle. A nil
// map with a nil error is a refused fetch the caller may retry; any error
// is final. Buffers never leak: every path that does not hand the buffer
// to a MemoryMap returns it to the pool first.
func (h *Handoff) acquireOnce(attempt int) (*MemoryMap, efi.Status, error) {
	probe, status := h.fw.MemoryMapSize()
	h.stats.probes.Add(1)
	if status != efi.BufferTooSmall {
		// The probe offers no buffer, so the only on-contract answer is
		// "buffer too small" plus the required size. Anything else, a
		// success included, means firmware is not implementing the
		// protocol this hand-off depends on.
		h.log.Error("memory map size probe violated contract", "status", status)
		return nil, status, fmt.Errorf("%w: size probe returned %s", ErrDeviceError, status)
	}
	if probe.DescriptorSize < efi.MemoryDescriptorSize {
		h.log.Error("memory map descriptor stride undersized",
			"descriptorSize", probe.DescriptorSize)
		return nil, status, fmt.Errorf("%w: descriptor stride %d below %d",
			ErrDeviceError, probe.DescriptorSize, efi.MemoryDescriptorSize)
	}

	// The allocation below mutates the pool and can itself grow the map,
	// so ask for headroom past the probed size.
	size := probe.Size + probe.DescriptorSize*slackDescriptors
	buf, status := h.fw.AllocatePool(size)
	if status.IsError() || len(buf) == 0 {
		h.log.Error("memory map allocation failed",
			"size", size, "status", status)
		return nil, status, fmt.Errorf("%w: allocating %d bytes: %s",
			ErrOutOfResources, size, status)
	}
	h.stats.allocations.Add(1)

	info, status := h.fw.ReadMemoryMap(buf)
	h.stats.fetches.Add(1)
	if status.IsError() {
		h.log.Warn("memory map fetch refused",
			"attempt", attempt, "size", len(buf), "status", status)
		h.free(buf)
		return nil, status, nil
	}

	if err := h.validateMap(buf, info); err != nil {
		h.free(buf)
		return nil, status, err
	}

	return newMemoryMap(h, buf, info), status, nil
}

// validateMap checks a successful fetch before descriptor views are built
// over the buffer. Failures here are not retried: a firmware that reports
// success and hands back an unusable map will do it again.
func (h *Handoff) validateMap(buf []byte, info MapInfo) error {
	if addr := uintptr(unsafe.Pointer(&buf[0])); addr%mapAlignment != 0 {
		h.log.Critical("memory map buffer misaligned",
			"address", fmt.Sprintf("%#x", addr), "alignment", mapAlignment)
		return fmt.Errorf("%w: buffer at %#x", ErrMisaligned, addr)
	}
	if info.Size > len(buf) {
		h.log.Critical("memory map overruns its buffer",
			"mapSize", info.Size, "bufferSize", len(buf))
		return fmt.Errorf("%w: map size %d exceeds %d byte buffer",
			ErrDeviceError, info.Size, len(buf))
	}
	if info.DescriptorSize < efi.MemoryDescriptorSize {
		h.log.Critical("memory map descriptor stride undersized",
			"descriptorSize", info.DescriptorSize)
		return fmt.Errorf("%w: descriptor stride %d below %d",
			ErrDeviceError, info.DescriptorSize, efi.MemoryDescriptorSize)
	}
	return nil
}

// free returns a buffer that never became a MemoryMap to the pool. A
// failed free is logged and dropped; the buffer is unreachable either
// way.
func (h *Handoff) free(buf []byte) {
	h.stats.releases.Add(1)
	if status := h.fw.FreePool(buf); status.IsError() {
		h.log.Warn("free pool failed", "status", status)
	}
}
