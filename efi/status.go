package efi

import "fmt"

// Status is a raw EFI_STATUS value as boot services return it. Error codes
// carry the high bit (UEFI spec, Appendix D); everything else is either
// success or a warning.
type Status uint64

const statusErrorBit Status = 1 << 63

const (
	Success Status = 0

	LoadError        Status = statusErrorBit | 1
	InvalidParameter Status = statusErrorBit | 2
	Unsupported      Status = statusErrorBit | 3
	BadBufferSize    Status = statusErrorBit | 4
	BufferTooSmall   Status = statusErrorBit | 5
	NotReady         Status = statusErrorBit | 6
	DeviceError      Status = statusErrorBit | 7
	WriteProtected   Status = statusErrorBit | 8
	OutOfResources   Status = statusErrorBit | 9
	NotFound         Status = statusErrorBit | 14
	AccessDenied     Status = statusErrorBit | 15
	Timeout          Status = statusErrorBit | 18
	Aborted          Status = statusErrorBit | 21
)

// IsError reports whether the status is one of the high-bit error codes.
// Warnings and Success both report false.
func (s Status) IsError() bool {
	return s&statusErrorBit != 0
}

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case LoadError:
		return "load error"
	case InvalidParameter:
		return "invalid parameter"
	case Unsupported:
		return "unsupported"
	case BadBufferSize:
		return "bad buffer size"
	case BufferTooSmall:
		return "buffer too small"
	case NotReady:
		return "not ready"
	case DeviceError:
		return "device error"
	case WriteProtected:
		return "write protected"
	case OutOfResources:
		return "out of resources"
	case NotFound:
		return "not found"
	case AccessDenied:
		return "access denied"
	case Timeout:
		return "timeout"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("status %#x", uint64(s))
}
