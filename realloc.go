package jdz

import (
	"errors"
	"unsafe"
)

// ErrOutOfMemory is returned by PosixMemalign when the underlying mapping
// fails; every other allocating entry point in this package signals the
// same failure by returning a nil pointer instead, matching the C
// malloc/calloc/realloc family this module replaces.
var ErrOutOfMemory = errors.New("jdz: out of memory")

// Calloc allocates num*size bytes, zeroed.
func (c *Cache) Calloc(num, size uintptr) unsafe.Pointer {
	total := num * size
	if num != 0 && total/num != size {
		return nil // overflow
	}
	ptr := c.arena.allocate(total)
	if ptr == nil {
		return nil
	}
	zero(ptr, total)
	return ptr
}

// Realloc resizes the block at ptr to size bytes, preserving the lesser of
// the old and new sizes' worth of content. ptr == nil behaves as
// Allocate(size); size == 0 frees ptr and returns nil.
//
// The replacement block is always allocated from the caller's own arena,
// never from ptr's original arena, so the two may differ; the old block
// is then released through the ordinary Free path, which transparently
// becomes a cross-thread deferred free if that is what's required.
func (c *Cache) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	if ptr == nil {
		return c.Allocate(size)
	}
	if size == 0 {
		c.Free(ptr)
		return nil
	}

	oldSize := UsableSize(ptr)
	newPtr := c.arena.allocate(size)
	if newPtr == nil {
		return nil
	}

	copySize := oldSize
	if size < copySize {
		copySize = size
	}
	copyBytes(newPtr, ptr, copySize)
	c.Free(ptr)
	return newPtr
}

// AlignedAlloc returns size bytes aligned to align, which must be a power
// of two (align == 0 means "no constraint"). It over-allocates by up to
// align-1 bytes and hands back an interior pointer rounded up to the
// requested alignment; spanFromPtr still recovers the owning span from
// that pointer by masking, and Free rounds a pointer into a single-unit
// span down to the start of its block, so the offset is transparent to
// the rest of the allocator.
func (c *Cache) AlignedAlloc(align, size uintptr) unsafe.Pointer {
	if align <= 1 {
		return c.Allocate(size)
	}
	assertf(isPowerOfTwo(uint32(align)), "AlignedAlloc: align %d is not a power of two", align)

	raw := c.Allocate(size + align - 1)
	if raw == nil {
		return nil
	}
	aligned := (uintptr(raw) + align - 1) &^ (align - 1)
	return unsafe.Pointer(aligned)
}

// AlignedRealloc resizes a block obtained via AlignedAlloc, copying up to
// oldsize bytes of its content into the new, equally aligned block.
func (c *Cache) AlignedRealloc(ptr unsafe.Pointer, align, size, oldsize uintptr) unsafe.Pointer {
	if ptr == nil {
		return c.AlignedAlloc(align, size)
	}
	if size == 0 {
		c.Free(ptr)
		return nil
	}

	newPtr := c.AlignedAlloc(align, size)
	if newPtr == nil {
		return nil
	}

	copySize := oldsize
	if size < copySize {
		copySize = size
	}
	copyBytes(newPtr, ptr, copySize)
	c.Free(ptr)
	return newPtr
}

// AlignedCalloc is AlignedAlloc followed by zeroing.
func (c *Cache) AlignedCalloc(align, num, size uintptr) unsafe.Pointer {
	total := num * size
	if num != 0 && total/num != size {
		return nil
	}
	ptr := c.AlignedAlloc(align, total)
	if ptr == nil {
		return nil
	}
	zero(ptr, total)
	return ptr
}

// Memalign is a POSIX-style alias for AlignedAlloc.
func (c *Cache) Memalign(align, size uintptr) unsafe.Pointer {
	return c.AlignedAlloc(align, size)
}

// PosixMemalign mirrors posix_memalign(3): align must be a power of two
// and a multiple of sizeof(void*), returning ErrOutOfMemory rather than a
// nil pointer when the mapping fails, since posix_memalign communicates
// failure through its return value rather than through *memptr.
func (c *Cache) PosixMemalign(align, size uintptr) (unsafe.Pointer, error) {
	assertf(align%unsafe.Sizeof(uintptr(0)) == 0,
		"PosixMemalign: align %d is not a multiple of pointer size", align)
	ptr := c.AlignedAlloc(align, size)
	if ptr == nil {
		return nil, ErrOutOfMemory
	}
	return ptr, nil
}

func zero(ptr unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	b := unsafe.Slice((*byte)(ptr), n)
	for i := range b {
		b[i] = 0
	}
}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}
