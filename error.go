package exitboot

import "errors"

//goland:noinspection GoUnusedGlobalVariable
var (
	ErrNotReady      = errors.New("boot services unavailable")
	ErrInvalidHandle = errors.New("image handle is nil")

	ErrDeviceError    = errors.New("firmware violated the memory map contract")
	ErrOutOfResources = errors.New("memory map allocation failed")
	ErrMisaligned     = errors.New("memory map buffer is misaligned")
	ErrExhausted      = errors.New("memory map attempts exhausted")

	ErrAborted = errors.New("exit from boot services aborted")
)
