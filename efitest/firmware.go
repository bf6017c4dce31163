// Package efitest provides an in-memory, fully scripted stand-in for the
// UEFI boot services surface. Every race real firmware can exhibit is a
// deterministic knob here: map growth between probe and fetch, stale map
// keys at the exit handshake, refused fetches, failed allocations,
// misaligned pool buffers.
//
// The fake keeps the real bookkeeping rule: any call that mutates pool or
// map state bumps an internal generation counter, and the generation is
// the map key. Keys therefore go stale for the same structural reason
// they do on hardware, not because a test hard-coded a rejection.
package efitest

import (
	"encoding/binary"

	"exitboot"
	"exitboot/efi"
	"exitboot/internal/pool"
)

var _ exitboot.BootServices = (*Firmware)(nil)

// arenaSize bounds everything the fake ever hands out. Generous: the
// deepest retry storms in tests stay well under it.
const arenaSize = 1 << 20

// Calls counts firmware entry points hit, for asserting exactly how many
// service calls a protocol run issued.
type Calls struct {
	Ready    int
	Probes   int
	Allocs   int
	Frees    int
	BadFrees int // frees of buffers the pool does not own
	Fetches  int
	Exits    int
}

// Firmware is a scripted boot services implementation. The zero value is
// not usable; construct with New.
type Firmware struct {
	regions     []efi.MemoryDescriptor
	descSize    int
	descVersion uint32

	generation uint64 // bookkeeping revision; doubles as the map key
	exited     bool
	notReady   bool

	arena *pool.Arena

	// Scripted behavior
	growth        int  // descriptors appended on every fetch
	fetchRefusals int  // fetches to refuse before behaving
	staleExits    int  // handshakes to reject with churned bookkeeping
	probeStatus   efi.Status
	probeScripted bool
	exitStatus    efi.Status
	exitScripted  bool
	probeSize     int             // forced probe size report
	fetchSize     int             // forced fetch size report
	fetchKey      exitboot.MapKey // forced fetch key report
	allocsFail    bool
	misaligned    bool

	calls      Calls
	allocSizes []int
}

// Option configures scripted behavior using the functional options
// pattern.
type Option func(*Firmware)

// WithRegions replaces the default memory map.
func WithRegions(regions ...efi.MemoryDescriptor) Option {
	return func(f *Firmware) {
		f.regions = regions
	}
}

// WithDescriptorSize sets the stride between descriptor records. The
// default is 48, a padded stride seen on real x86-64 firmware; nothing
// stops a test scripting one below the record size.
func WithDescriptorSize(size int) Option {
	return func(f *Firmware) {
		f.descSize = size
	}
}

// WithDescriptorVersion sets the reported descriptor layout revision.
func WithDescriptorVersion(v uint32) Option {
	return func(f *Firmware) {
		f.descVersion = v
	}
}

// WithMapGrowth appends n fresh regions to the map on every fetch,
// modeling churn between the size probe and the fetch. Growth within the
// acquirer's headroom is absorbed; growth past it refuses every fetch.
func WithMapGrowth(n int) Option {
	return func(f *Firmware) {
		f.growth = n
	}
}

// WithFetchRefusals refuses the first n fetches with BufferTooSmall
// regardless of buffer size.
func WithFetchRefusals(n int) Option {
	return func(f *Firmware) {
		f.fetchRefusals = n
	}
}

// WithStaleExits churns bookkeeping at each of the first n exit
// handshakes, so the presented key is stale no matter how fresh its
// snapshot was.
func WithStaleExits(n int) Option {
	return func(f *Firmware) {
		f.staleExits = n
	}
}

// WithProbeStatus forces every size probe to report the given status,
// Success included.
func WithProbeStatus(status efi.Status) Option {
	return func(f *Firmware) {
		f.probeStatus = status
		f.probeScripted = true
	}
}

// WithExitStatus forces every exit handshake to report the given status
// without touching firmware state.
func WithExitStatus(status efi.Status) Option {
	return func(f *Firmware) {
		f.exitStatus = status
		f.exitScripted = true
	}
}

// WithAllocFailure makes every pool allocation fail with OutOfResources.
func WithAllocFailure() Option {
	return func(f *Firmware) {
		f.allocsFail = true
	}
}

// WithMisalignedAllocations skews every pool allocation onto an odd
// address.
func WithMisalignedAllocations() Option {
	return func(f *Firmware) {
		f.misaligned = true
	}
}

// WithNotReady reports boot services as already unavailable.
func WithNotReady() Option {
	return func(f *Firmware) {
		f.notReady = true
	}
}

// WithProbeSize forces the byte size the probe reports, independent of
// the regions actually present.
func WithProbeSize(n int) Option {
	return func(f *Firmware) {
		f.probeSize = n
	}
}

// WithFetchSize forces the byte size a successful fetch reports. The
// descriptor content is whatever honest serialization produced.
func WithFetchSize(n int) Option {
	return func(f *Firmware) {
		f.fetchSize = n
	}
}

// WithFetchKey forces the key a successful fetch reports. Presentation
// only: the handshake still compares against real bookkeeping, so a
// forced key is stale by construction.
func WithFetchKey(key exitboot.MapKey) Option {
	return func(f *Firmware) {
		f.fetchKey = key
	}
}

// New builds a firmware fake with a plausible default memory map.
func New(options ...Option) (*Firmware, error) {
	f := &Firmware{
		regions:     defaultRegions(),
		descSize:    48,
		descVersion: efi.MemoryDescriptorVersion,
		generation:  1,
	}
	for _, opt := range options {
		opt(f)
	}

	arena, err := pool.New(arenaSize)
	if err != nil {
		return nil, err
	}
	f.arena = arena
	return f, nil
}

// Ready implements exitboot.BootServices.
func (f *Firmware) Ready() bool {
	f.calls.Ready++
	return !f.notReady && !f.exited
}

// MemoryMapSize implements exitboot.BootServices. The honest answer is
// always BufferTooSmall with the current requirement, matching firmware
// asked for a map with no buffer to put it in.
func (f *Firmware) MemoryMapSize() (exitboot.MapInfo, efi.Status) {
	f.calls.Probes++
	info := exitboot.MapInfo{
		Size:              f.mapBytes(),
		Key:               exitboot.MapKey(f.generation),
		DescriptorSize:    f.descSize,
		DescriptorVersion: f.descVersion,
	}
	if f.probeSize > 0 {
		info.Size = f.probeSize
	}
	if f.probeScripted {
		return info, f.probeStatus
	}
	return info, efi.BufferTooSmall
}

// AllocatePool implements exitboot.BootServices. A successful allocation
// mutates pool bookkeeping and therefore bumps the generation, exactly
// the mechanism that makes probe-time keys worthless.
func (f *Firmware) AllocatePool(size int) ([]byte, efi.Status) {
	f.calls.Allocs++
	f.allocSizes = append(f.allocSizes, size)
	if f.allocsFail {
		return nil, efi.OutOfResources
	}

	var buf []byte
	if f.misaligned {
		buf = f.arena.AllocOffset(size, 1)
	} else {
		buf = f.arena.Alloc(size)
	}
	if buf == nil {
		return nil, efi.OutOfResources
	}
	f.generation++
	return buf, efi.Success
}

// FreePool implements exitboot.BootServices.
func (f *Firmware) FreePool(buf []byte) efi.Status {
	f.calls.Frees++
	if !f.arena.Free(buf) {
		f.calls.BadFrees++
		return efi.InvalidParameter
	}
	f.generation++
	return efi.Success
}

// ReadMemoryMap implements exitboot.BootServices.
func (f *Firmware) ReadMemoryMap(buf []byte) (exitboot.MapInfo, efi.Status) {
	f.calls.Fetches++

	if f.growth > 0 {
		f.churn(f.growth)
	}

	need := f.mapBytes()
	info := exitboot.MapInfo{
		Size:              need,
		Key:               exitboot.MapKey(f.generation),
		DescriptorSize:    f.descSize,
		DescriptorVersion: f.descVersion,
	}

	if f.fetchRefusals > 0 {
		f.fetchRefusals--
		return info, efi.BufferTooSmall
	}
	if need > len(buf) {
		return info, efi.BufferTooSmall
	}

	for i := range f.regions {
		marshalDescriptor(buf[i*f.descSize:], &f.regions[i])
	}
	if f.fetchSize > 0 {
		info.Size = f.fetchSize
	}
	if f.fetchKey != 0 {
		info.Key = f.fetchKey
	}
	return info, efi.Success
}

// ExitBootServices implements exitboot.BootServices. The handshake
// succeeds iff the presented key matches current bookkeeping; afterwards
// the fake reports not ready forever.
func (f *Firmware) ExitBootServices(handle exitboot.Handle, key exitboot.MapKey) efi.Status {
	f.calls.Exits++
	if f.exitScripted {
		return f.exitStatus
	}
	if handle == 0 {
		return efi.InvalidParameter
	}
	if f.staleExits > 0 {
		f.staleExits--
		f.generation++
		return efi.InvalidParameter
	}
	if uint64(key) != f.generation {
		return efi.InvalidParameter
	}
	f.exited = true
	return efi.Success
}

// Calls returns a copy of the per-entry-point call counters.
func (f *Firmware) Calls() Calls {
	return f.calls
}

// Outstanding returns the number of pool allocations never freed.
func (f *Firmware) Outstanding() int {
	return f.arena.Outstanding()
}

// AllocSizes returns the byte size of every allocation requested, in
// order, failures included.
func (f *Firmware) AllocSizes() []int {
	out := make([]int, len(f.allocSizes))
	copy(out, f.allocSizes)
	return out
}

// Exited reports whether a handshake has succeeded.
func (f *Firmware) Exited() bool {
	return f.exited
}

// Regions returns a copy of the current simulated map.
func (f *Firmware) Regions() []efi.MemoryDescriptor {
	out := make([]efi.MemoryDescriptor, len(f.regions))
	copy(out, f.regions)
	return out
}

// Close releases the backing arena.
func (f *Firmware) Close() error {
	return f.arena.Close()
}

func (f *Firmware) mapBytes() int {
	return len(f.regions) * f.descSize
}

// churn appends n single-page regions past the end of the map and bumps
// the generation, the same bookkeeping move real firmware makes when an
// allocation splits a region.
func (f *Firmware) churn(n int) {
	start := uint64(0x10000000)
	if len(f.regions) > 0 {
		start = f.regions[len(f.regions)-1].PhysicalEnd()
	}
	for i := 0; i < n; i++ {
		f.regions = append(f.regions, efi.MemoryDescriptor{
			Type:          efi.BootServicesData,
			PhysicalStart: start,
			NumberOfPages: 1,
			Attribute:     efi.MemoryWB,
		})
		start += efi.PageSize
	}
	f.generation++
}

// marshalDescriptor lays a record out exactly as firmware does: explicit
// little-endian fields, trailing stride padding untouched.
func marshalDescriptor(dst []byte, d *efi.MemoryDescriptor) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(d.Type))
	binary.LittleEndian.PutUint64(dst[8:16], d.PhysicalStart)
	binary.LittleEndian.PutUint64(dst[16:24], d.VirtualStart)
	binary.LittleEndian.PutUint64(dst[24:32], d.NumberOfPages)
	binary.LittleEndian.PutUint64(dst[32:40], d.Attribute)
}

func defaultRegions() []efi.MemoryDescriptor {
	return []efi.MemoryDescriptor{
		{Type: efi.ReservedMemoryType, PhysicalStart: 0x0, NumberOfPages: 0xA0},
		{Type: efi.ConventionalMemory, PhysicalStart: 0x100000, NumberOfPages: 0x700, Attribute: efi.MemoryWB},
		{Type: efi.LoaderCode, PhysicalStart: 0x800000, NumberOfPages: 0x100, Attribute: efi.MemoryWB},
		{Type: efi.LoaderData, PhysicalStart: 0x900000, NumberOfPages: 0x100, Attribute: efi.MemoryWB},
		{Type: efi.BootServicesCode, PhysicalStart: 0xA00000, NumberOfPages: 0x200, Attribute: efi.MemoryWB},
		{Type: efi.BootServicesData, PhysicalStart: 0xC00000, NumberOfPages: 0x200, Attribute: efi.MemoryWB},
		{Type: efi.ConventionalMemory, PhysicalStart: 0xE00000, NumberOfPages: 0x7000, Attribute: efi.MemoryWB},
		{Type: efi.ACPIReclaimMemory, PhysicalStart: 0x7E00000, NumberOfPages: 0x40},
		{Type: efi.ACPIMemoryNVS, PhysicalStart: 0x7E40000, NumberOfPages: 0x40},
		{Type: efi.RuntimeServicesCode, PhysicalStart: 0x7E80000, NumberOfPages: 0x80, Attribute: efi.MemoryWB | efi.MemoryRuntime},
		{Type: efi.RuntimeServicesData, PhysicalStart: 0x7F00000, NumberOfPages: 0x80, Attribute: efi.MemoryWB | efi.MemoryRuntime},
		{Type: efi.MemoryMappedIO, PhysicalStart: 0xFEC00000, NumberOfPages: 0x10, Attribute: efi.MemoryUC},
	}
}
