package exitboot

import "exitboot/efi"

// Handle is the opaque EFI_HANDLE firmware gave the loaded image. The
// hand-off never dereferences it; it only proves to firmware who is
// asking to exit.
type Handle uintptr

// MapKey certifies that a memory map snapshot matches firmware's current
// allocation bookkeeping. Any call that mutates firmware state may
// invalidate an outstanding key.
type MapKey uint64

// MapInfo is the map geometry firmware reports from a size probe or a
// fetch: how many bytes of descriptors, under which key, at what stride.
type MapInfo struct {
	Size              int    // bytes of map data required or written
	Key               MapKey // freshness token; meaningful only from a fetch
	DescriptorSize    int    // stride between descriptor records
	DescriptorVersion uint32 // descriptor layout revision
}

// BootServices is the firmware surface the hand-off drives. Production
// implementations bind the UEFI boot services table; tests substitute a
// scripted fake. All calls are strictly serial: the hand-off runs on one
// thread and firmware offers no reentrancy.
type BootServices interface {
	// Ready reports whether boot services can still be called. False once
	// ExitBootServices has succeeded or the services table is gone.
	Ready() bool

	// MemoryMapSize probes the size of the current memory map without a
	// buffer. Firmware answers BufferTooSmall with the required byte count
	// in MapInfo.Size; any other status is a contract violation.
	MemoryMapSize() (MapInfo, efi.Status)

	// ReadMemoryMap writes the current map into buf and reports its
	// geometry and key. BufferTooSmall means the map outgrew buf since the
	// probe; Size then carries the new requirement.
	ReadMemoryMap(buf []byte) (MapInfo, efi.Status)

	// AllocatePool obtains size bytes from the firmware pool allocator.
	AllocatePool(size int) ([]byte, efi.Status)

	// FreePool returns a buffer obtained from AllocatePool.
	FreePool(buf []byte) efi.Status

	// ExitBootServices asks firmware to terminate boot services. The key
	// must match firmware's current bookkeeping; InvalidParameter signals
	// it went stale. After Success the boot services table, and every
	// service behind it, is dead.
	ExitBootServices(handle Handle, key MapKey) efi.Status
}
