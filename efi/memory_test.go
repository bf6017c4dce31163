package efi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestMemoryDescriptorLayout(t *testing.T) {
	t.Parallel()

	// Verify the struct matches the firmware record byte for byte
	assert.Equal(t, uintptr(MemoryDescriptorSize), unsafe.Sizeof(MemoryDescriptor{}), "MemoryDescriptor Size")

	// Verify field offsets (Type is padded out to 8 bytes)
	var d MemoryDescriptor
	assert.Equal(t, uintptr(0), unsafe.Offsetof(d.Type), "Type offset")
	assert.Equal(t, uintptr(8), unsafe.Offsetof(d.PhysicalStart), "PhysicalStart offset")
	assert.Equal(t, uintptr(16), unsafe.Offsetof(d.VirtualStart), "VirtualStart offset")
	assert.Equal(t, uintptr(24), unsafe.Offsetof(d.NumberOfPages), "NumberOfPages offset")
	assert.Equal(t, uintptr(32), unsafe.Offsetof(d.Attribute), "Attribute offset")
}

func TestMemoryDescriptorBounds(t *testing.T) {
	t.Parallel()

	d := MemoryDescriptor{
		Type:          ConventionalMemory,
		PhysicalStart: 0x100000,
		NumberOfPages: 256,
		Attribute:     MemoryWB,
	}

	assert.Equal(t, uint64(0x200000), d.PhysicalEnd(), "PhysicalEnd")
	assert.Equal(t, 256*PageSize, d.Size(), "Size")
}

func TestMemoryDescriptorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		desc    MemoryDescriptor
		usable  bool
		runtime bool
	}{
		{"conventional", MemoryDescriptor{Type: ConventionalMemory, Attribute: MemoryWB}, true, false},
		{"loader code", MemoryDescriptor{Type: LoaderCode, Attribute: MemoryWB}, true, false},
		{"loader data", MemoryDescriptor{Type: LoaderData, Attribute: MemoryWB}, true, false},
		{"boot services code", MemoryDescriptor{Type: BootServicesCode, Attribute: MemoryWB}, true, false},
		{"boot services data", MemoryDescriptor{Type: BootServicesData, Attribute: MemoryWB}, true, false},
		{"reserved", MemoryDescriptor{Type: ReservedMemoryType}, false, false},
		{"unusable", MemoryDescriptor{Type: UnusableMemory}, false, false},
		{"MMIO", MemoryDescriptor{Type: MemoryMappedIO, Attribute: MemoryUC}, false, false},
		{"ACPI reclaim", MemoryDescriptor{Type: ACPIReclaimMemory}, false, false},
		{"runtime code", MemoryDescriptor{Type: RuntimeServicesCode, Attribute: MemoryWB | MemoryRuntime}, false, true},
		{"runtime data", MemoryDescriptor{Type: RuntimeServicesData, Attribute: MemoryWB | MemoryRuntime}, false, true},
		// Runtime attribute trumps an otherwise reclaimable type
		{"runtime conventional", MemoryDescriptor{Type: ConventionalMemory, Attribute: MemoryWB | MemoryRuntime}, false, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.usable, tc.desc.IsUsable(), "IsUsable")
			assert.Equal(t, tc.runtime, tc.desc.IsRuntime(), "IsRuntime")
		})
	}
}

func TestMemoryTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "conventional memory", ConventionalMemory.String())
	assert.Equal(t, "runtime services data", RuntimeServicesData.String())
	assert.Equal(t, "memory type 99", MemoryType(99).String())
}
