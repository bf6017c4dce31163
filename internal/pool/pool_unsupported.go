// pool_unsupported.go
//go:build !linux && !darwin

package pool

import "unsafe"

const pageSize = 4096

// On platforms without anonymous mappings the arena over-allocates from
// the Go heap and slides to a page boundary. Addresses stay stable
// because the arena keeps the backing slice alive.
func reserve(size int) ([]byte, error) {
	block := make([]byte, size+pageSize)
	a := int(uintptr(unsafe.Pointer(&block[0])) & uintptr(pageSize-1))
	offset := 0
	if a != 0 {
		offset = pageSize - a
	}
	return block[offset : offset+size], nil
}

func release([]byte) error {
	return nil
}
