// Package exitboot drives the hand-off from UEFI firmware to an operating
// system: it captures memory map snapshots whose map key certifies
// freshness, and uses the freshest key to exit boot services while
// absorbing the bookkeeping races real firmware exhibits.
package exitboot

import "fmt"

const (
	// Firmware may mutate its bookkeeping between any two service calls,
	// invalidating sizes and keys the caller just obtained. Both protocol
	// loops ride out a bounded number of such races before giving up.
	maxMapAttempts  = 8
	maxExitAttempts = 8

	// slackDescriptors is the allocation headroom beyond the probed map
	// size. The allocation itself can grow the map, so the buffer leaves
	// room for regions that appear between probe and fetch.
	slackDescriptors = 16

	// mapAlignment is the word alignment descriptor records are read
	// under. Views into the map dereference fixed-width fields in place.
	mapAlignment = 8
)

// Handoff owns the firmware side of a boot hand-off. It is single-owner
// and strictly serial: one goroutine walks it from construction through a
// successful ExitBootServices, matching the one-CPU, no-scheduler world it
// runs in. Stats is the only method safe to call from elsewhere.
type Handoff struct {
	fw    BootServices
	log   Logger
	stats counters
}

// New binds a hand-off to a firmware boot services surface.
func New(fw BootServices, options ...Option) (*Handoff, error) {
	if fw == nil {
		return nil, fmt.Errorf("%w: nil boot services", ErrNotReady)
	}

	// Apply options
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	return &Handoff{
		fw:  fw,
		log: opts.logger,
	}, nil
}

// Stats returns firmware protocol statistics
func (h *Handoff) Stats() Stats {
	return h.stats.snapshot()
}
