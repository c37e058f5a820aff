package jdz

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapRegion requests n bytes of anonymous, read-write memory from the OS.
// It returns the base address as a uintptr and the number of bytes mapped,
// or (0, 0) on failure -- mirroring arena.c's _jdz_arena_map_spans, which
// treats a failed mmap as the allocator's only out-of-memory signal.
func mapRegion(n uintptr) (uintptr, uintptr) {
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, 0
	}
	return uintptr(unsafe.Pointer(&b[0])), uintptr(len(b))
}

// unmapRegion releases memory previously returned by mapRegion.
func unmapRegion(addr, size uintptr) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	_ = unix.Munmap(b)
}
