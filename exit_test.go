package exitboot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exitboot"
	"exitboot/efi"
	"exitboot/efitest"
)

func TestExitBootServices(t *testing.T) {
	t.Parallel()

	h, fw := setup(t)

	require.NoError(t, h.ExitBootServices(imageHandle), "Failed to exit boot services")
	assert.True(t, fw.Exited(), "firmware exited")
	assert.False(t, fw.Ready(), "boot services gone")

	calls := fw.Calls()
	assert.Equal(t, 1, calls.Exits, "handshakes")
	assert.Equal(t, 1, calls.Allocs, "one snapshot")
	assert.Equal(t, 0, calls.Frees, "consumed snapshot is never freed")
	assert.Equal(t, 1, fw.Outstanding(), "consumed snapshot stays allocated")

	stats := h.Stats()
	assert.Equal(t, uint64(1), stats.ExitAttempts, "exit attempts")
	assert.Equal(t, uint64(0), stats.ExitRetries, "exit retries")
	assert.Equal(t, uint64(1), stats.MapsAcquired, "maps acquired")

	// Everything after a successful exit finds boot services gone
	assert.ErrorIs(t, h.ExitBootServices(imageHandle), exitboot.ErrNotReady)
}

func TestExitNilHandle(t *testing.T) {
	t.Parallel()

	h, fw := setup(t)

	err := h.ExitBootServices(0)
	assert.ErrorIs(t, err, exitboot.ErrInvalidHandle)
	assert.Equal(t, efitest.Calls{}, fw.Calls(), "no firmware call of any kind")
}

func TestExitRetriesStaleKey(t *testing.T) {
	t.Parallel()

	h, fw := setup(t, efitest.WithStaleExits(2))

	require.NoError(t, h.ExitBootServices(imageHandle), "Failed to exit after stale keys")
	assert.True(t, fw.Exited(), "firmware exited")

	// Every attempt works from its own fresh snapshot
	calls := fw.Calls()
	assert.Equal(t, 3, calls.Exits, "handshakes")
	assert.Equal(t, 3, calls.Allocs, "snapshots")
	assert.Equal(t, 3, calls.Fetches, "fetches")
	assert.Equal(t, 2, calls.Frees, "stale snapshots returned")
	assert.Equal(t, 1, fw.Outstanding(), "consumed snapshot stays allocated")

	stats := h.Stats()
	assert.Equal(t, uint64(3), stats.ExitAttempts, "exit attempts")
	assert.Equal(t, uint64(2), stats.ExitRetries, "exit retries")
}

func TestExitAborted(t *testing.T) {
	t.Parallel()

	h, fw := setup(t, efitest.WithStaleExits(8))

	err := h.ExitBootServices(imageHandle)
	assert.ErrorIs(t, err, exitboot.ErrAborted)
	assert.False(t, fw.Exited(), "firmware still in boot services")
	assert.True(t, fw.Ready(), "boot services still callable")

	calls := fw.Calls()
	assert.Equal(t, 8, calls.Exits, "bounded handshakes")
	assert.Equal(t, 8, calls.Allocs, "snapshots")
	assert.Equal(t, 8, calls.Frees, "every stale snapshot returned")
	assert.Equal(t, 0, fw.Outstanding(), "leaked buffers")
}

func TestExitFatalStatus(t *testing.T) {
	t.Parallel()

	h, fw := setup(t, efitest.WithExitStatus(efi.DeviceError))

	err := h.ExitBootServices(imageHandle)
	assert.ErrorIs(t, err, exitboot.ErrDeviceError)

	calls := fw.Calls()
	assert.Equal(t, 1, calls.Exits, "no retry on a non-stale failure")
	assert.Equal(t, 1, calls.Frees, "snapshot returned")
	assert.Equal(t, 0, fw.Outstanding(), "leaked buffers")
}

func TestExitPropagatesAcquireFailure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		option efitest.Option
		want   error
	}{
		{"not ready", efitest.WithNotReady(), exitboot.ErrNotReady},
		{"exhausted", efitest.WithFetchRefusals(8), exitboot.ErrExhausted},
		{"out of resources", efitest.WithAllocFailure(), exitboot.ErrOutOfResources},
		{"misaligned", efitest.WithMisalignedAllocations(), exitboot.ErrMisaligned},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h, fw := setup(t, tc.option)

			// Acquisition failures keep their class instead of being
			// absorbed into the exit bound.
			err := h.ExitBootServices(imageHandle)
			assert.ErrorIs(t, err, tc.want)
			assert.NotErrorIs(t, err, exitboot.ErrAborted)
			assert.Equal(t, 0, fw.Calls().Exits, "no handshake without a snapshot")
		})
	}
}
