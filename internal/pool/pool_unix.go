// pool_unix.go
//go:build linux || darwin

package pool

import "golang.org/x/sys/unix"

// reserve maps an anonymous region outside the Go heap. Addresses are
// page aligned by construction and stable for the arena's lifetime.
func reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func release(mem []byte) error {
	if mem == nil {
		return nil
	}
	return unix.Munmap(mem)
}
