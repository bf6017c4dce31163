package exitboot

import (
	"fmt"

	"exitboot/efi"
)

// ExitBootServices terminates firmware boot services for good. Each
// attempt captures a fresh memory map snapshot and offers its key to
// firmware; a stale-key rejection burns one attempt and the loop tries
// again with a newer snapshot, up to a fixed bound.
//
// On success boot services no longer exist. The firmware pool allocator
// is gone with them, so the final snapshot is deliberately not freed; its
// memory is ordinary RAM the OS now owns.
func (h *Handoff) ExitBootServices(handle Handle) error {
	if handle == 0 {
		// A nil handle cannot identify this image to firmware. Refused
		// before any firmware call.
		h.log.Error("exit from boot services refused", "reason", "nil image handle")
		return ErrInvalidHandle
	}

	retry := attempts{max: maxExitAttempts}
	var lastDigest uint64
	for retry.next() {
		m, err := h.AcquireMemoryMap()
		if err != nil {
			// Acquisition failures keep their own class. The exit loop
			// absorbs stale keys, nothing else.
			return err
		}

		digest := m.Digest()
		sameMap := retry.n > 1 && digest == lastDigest
		lastDigest = digest

		status := h.fw.ExitBootServices(handle, m.Key())
		h.stats.exitAttempts.Add(1)

		switch status {
		case efi.Success:
			m.consume()
			h.log.Info("boot services exited",
				"attempts", retry.n, "mapSize", m.Size(), "descriptors", m.Count())
			return nil

		case efi.InvalidParameter:
			// The key went stale between fetch and handshake, the one
			// race this loop exists to ride out.
			h.stats.exitRetries.Add(1)
			retry.fail(status)
			h.log.Warn("exit handshake lost the key race",
				"attempt", retry.n, "key", m.Key(), "mapUnchanged", sameMap)
			h.releaseQuiet(m)

		default:
			// A fresh key cannot fix whatever this is.
			h.log.Error("exit handshake failed",
				"attempt", retry.n, "status", status)
			h.releaseQuiet(m)
			return fmt.Errorf("%w: exit returned %s", ErrDeviceError, status)
		}
	}

	h.log.Critical("exit from boot services aborted",
		"attempts", retry.max, "lastStatus", retry.last)
	return fmt.Errorf("%w: %d attempts, every key stale", ErrAborted, retry.max)
}

// releaseQuiet frees a snapshot on a path that already has a more
// important error to report.
func (h *Handoff) releaseQuiet(m *MemoryMap) {
	if err := m.Release(); err != nil {
		h.log.Warn("memory map release failed", "err", err)
	}
}
