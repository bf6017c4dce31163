package exitboot

import "sync/atomic"

// counters accumulates firmware protocol activity. Atomics keep Stats
// snapshots consistent for observers on other goroutines even though the
// hand-off itself runs strictly serially.
type counters struct {
	probes       atomic.Uint64
	allocations  atomic.Uint64
	releases     atomic.Uint64
	fetches      atomic.Uint64
	mapRetries   atomic.Uint64
	mapsAcquired atomic.Uint64
	exitAttempts atomic.Uint64
	exitRetries  atomic.Uint64
}

// Stats holds firmware protocol statistics
type Stats struct {
	Probes       uint64 // size probes issued
	Allocations  uint64 // map buffers obtained from the firmware pool
	Releases     uint64 // map buffers returned to the firmware pool
	Fetches      uint64 // map fetches issued
	MapRetries   uint64 // acquisition cycles restarted after a refused fetch
	MapsAcquired uint64 // snapshots handed to callers or the exit handshake
	ExitAttempts uint64 // exit handshakes issued
	ExitRetries  uint64 // handshakes rejected with a stale key
}

func (c *counters) snapshot() Stats {
	return Stats{
		Probes:       c.probes.Load(),
		Allocations:  c.allocations.Load(),
		Releases:     c.releases.Load(),
		Fetches:      c.fetches.Load(),
		MapRetries:   c.mapRetries.Load(),
		MapsAcquired: c.mapsAcquired.Load(),
		ExitAttempts: c.exitAttempts.Load(),
		ExitRetries:  c.exitRetries.Load(),
	}
}
