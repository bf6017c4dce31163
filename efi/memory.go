// Package efi holds the wire-level vocabulary of the UEFI boot services
// that matter to the firmware hand-off: status codes, memory types, and the
// memory descriptor record exactly as firmware lays it out.
package efi

import "fmt"

// PageSize is the UEFI page unit. NumberOfPages counts these regardless of
// the CPU page size in use.
const PageSize = 4096

// MemoryType classifies a memory region in the firmware memory map.
type MemoryType uint32

const (
	ReservedMemoryType MemoryType = iota
	LoaderCode
	LoaderData
	BootServicesCode
	BootServicesData
	RuntimeServicesCode
	RuntimeServicesData
	ConventionalMemory
	UnusableMemory
	ACPIReclaimMemory
	ACPIMemoryNVS
	MemoryMappedIO
	MemoryMappedIOPortSpace
	PalCode
	PersistentMemory
	UnacceptedMemoryType
	MaxMemoryType
)

func (t MemoryType) String() string {
	switch t {
	case ReservedMemoryType:
		return "reserved"
	case LoaderCode:
		return "loader code"
	case LoaderData:
		return "loader data"
	case BootServicesCode:
		return "boot services code"
	case BootServicesData:
		return "boot services data"
	case RuntimeServicesCode:
		return "runtime services code"
	case RuntimeServicesData:
		return "runtime services data"
	case ConventionalMemory:
		return "conventional memory"
	case UnusableMemory:
		return "unusable"
	case ACPIReclaimMemory:
		return "ACPI reclaim"
	case ACPIMemoryNVS:
		return "ACPI NVS"
	case MemoryMappedIO:
		return "MMIO"
	case MemoryMappedIOPortSpace:
		return "MMIO port space"
	case PalCode:
		return "PAL code"
	case PersistentMemory:
		return "persistent memory"
	case UnacceptedMemoryType:
		return "unaccepted"
	}
	return fmt.Sprintf("memory type %d", uint32(t))
}

// Memory attribute bits from the descriptor Attribute field.
const (
	MemoryUC      uint64 = 1 << 0
	MemoryWC      uint64 = 1 << 1
	MemoryWT      uint64 = 1 << 2
	MemoryWB      uint64 = 1 << 3
	MemoryWP      uint64 = 1 << 12
	MemoryRP      uint64 = 1 << 13
	MemoryXP      uint64 = 1 << 14
	MemoryNV      uint64 = 1 << 15
	MemoryRuntime uint64 = 1 << 63
)

// MemoryDescriptorVersion is the descriptor layout revision this package
// understands. Firmware reports its own alongside every map.
const MemoryDescriptorVersion = 1

// MemoryDescriptorSize is the byte size of the version-1 descriptor record.
// The stride firmware uses between records may be larger and must be taken
// from the reported descriptor size, never from this constant.
const MemoryDescriptorSize = 40

// MemoryDescriptor is one record of the firmware memory map, field for
// field the EFI_MEMORY_DESCRIPTOR layout. Values of this type are commonly
// views into a fetched map buffer rather than copies.
type MemoryDescriptor struct {
	Type          MemoryType
	_             uint32
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// PhysicalEnd returns the first byte past the region.
func (d *MemoryDescriptor) PhysicalEnd() uint64 {
	return d.PhysicalStart + d.NumberOfPages*PageSize
}

// Size returns the region size in bytes.
func (d *MemoryDescriptor) Size() int {
	return int(d.NumberOfPages * PageSize)
}

// IsRuntime reports whether the region must stay mapped for runtime
// services after boot services end.
func (d *MemoryDescriptor) IsRuntime() bool {
	return d.Attribute&MemoryRuntime != 0
}

// IsUsable reports whether the OS may reclaim the region as general
// purpose RAM once boot services have been exited. Runtime regions are
// never usable no matter their type.
func (d *MemoryDescriptor) IsUsable() bool {
	if d.IsRuntime() {
		return false
	}
	switch d.Type {
	case LoaderCode, LoaderData, BootServicesCode, BootServicesData, ConventionalMemory:
		return true
	}
	return false
}
