// Package jdz is a general-purpose, process-wide dynamic memory allocator:
// per-handle arenas with thread-local-style free-list fast paths, bounded
// span caches for recycling, and large spans mapped directly from the OS.
// See doc.go for the design overview and SPEC_FULL.md for the full
// requirements this module implements.
package jdz

import (
	"sync"
	"unsafe"
)

// Allocator owns the process-wide configuration and the registry of every
// arena ever handed out. A span's header only ever stores its arena's
// numeric id (see span.go); Allocator.arenaByID is the only place that id
// is turned back into a live *arena.
type Allocator struct {
	cfg Config

	mu       sync.Mutex
	registry []*arena // index == arena id
	freeIDs  []uint32 // ids of arenas no longer attached to a live Cache
}

var (
	defaultOnce sync.Once
	defaultInst *Allocator
)

// defaultAllocator returns the package-wide instance, building one with
// DefaultConfig if Init has not been called yet. No exported function
// calls it: every Cache comes from an Allocator that Init returned.
func defaultAllocator() *Allocator {
	defaultOnce.Do(func() {
		defaultInst = &Allocator{cfg: DefaultConfig()}
	})
	return defaultInst
}

// Init builds an Allocator. The first call made anywhere in the process
// (with or without options) also becomes the package-wide default
// instance returned by defaultAllocator. Each call returns an independent
// Allocator with its own arenas. UsableSize needs no Allocator at all: it
// reads only the span header.
func Init(opts ...Option) *Allocator {
	a := &Allocator{cfg: buildConfig(opts)}
	defaultOnce.Do(func() { defaultInst = a })
	return a
}

// Deinit releases every arena this Allocator ever handed out. It is the
// caller's responsibility to ensure no Cache from this Allocator is still
// in use; Deinit does not attempt to detect concurrent use.
func (a *Allocator) Deinit() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, ar := range a.registry {
		if ar == nil {
			continue
		}
		ar.cache.drain(ar.unmapSpan)
		for i := range ar.largeCache {
			for s := ar.largeCache[i].tryRead(); s != nil; s = ar.largeCache[i].tryRead() {
				ar.unmapSpan(s)
			}
		}
	}
	a.registry = nil
	a.freeIDs = nil
}

// ThreadInit returns a handle to a fresh or pooled arena. The handle is
// cheap to keep for the lifetime of a goroutine or worker and should be
// passed to every Allocate/Calloc/Realloc/Free call that goroutine makes.
func (a *Allocator) ThreadInit() *Cache {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.freeIDs); n > 0 {
		id := a.freeIDs[n-1]
		a.freeIDs = a.freeIDs[:n-1]
		return &Cache{arena: a.registry[id]}
	}

	id := uint32(len(a.registry))
	ar := newArena(id, a)
	a.registry = append(a.registry, ar)
	return &Cache{arena: ar}
}

// arenaByID recovers the live arena a span's header refers to.
func (a *Allocator) arenaByID(id uint32) *arena {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry[id]
}

// Cache is a handle to one arena, returned by ThreadInit. It is not safe
// for concurrent use by more than one goroutine at a time; each goroutine
// that wants the fast paths should hold its own handle.
type Cache struct {
	arena *arena
}

// ThreadDeinit releases the handle; IsInitialized reports false for it
// afterwards. If releaseCaches is true, the arena's
// single-span and large-span caches are unmapped immediately rather than
// left populated for whoever next pops this arena id off the free pool.
func (c *Cache) ThreadDeinit(releaseCaches bool) {
	a := c.arena.owner

	if releaseCaches {
		c.arena.cache.drain(c.arena.unmapSpan)
		for i := range c.arena.largeCache {
			for s := c.arena.largeCache[i].tryRead(); s != nil; s = c.arena.largeCache[i].tryRead() {
				c.arena.unmapSpan(s)
			}
		}
	}

	a.mu.Lock()
	a.freeIDs = append(a.freeIDs, c.arena.id)
	a.mu.Unlock()
	c.arena = nil
}

// IsInitialized reports whether the handle still refers to a live arena.
func (c *Cache) IsInitialized() bool {
	return c != nil && c.arena != nil
}

// Allocate returns size bytes from this handle's arena, or nil if the
// underlying OS mapping failed.
func (c *Cache) Allocate(size uintptr) unsafe.Pointer {
	return c.arena.allocate(size)
}

// Free returns ptr (previously returned by Allocate or one of the realloc
// family) to the allocator. Free(nil) is a no-op, as is freeing a pointer
// whose span header records zero span units.
//
// A multi-unit large span freed through its owning arena's handle goes to
// cacheLargeSpanOrFree. A foreign handle only offers it to the owner's
// large-span MPSC queue, which is safe for concurrent producers, and
// unmaps it when that queue is full or the span is a direct allocation;
// the owner's single-span cache, which cacheLargeSpanOrFree can fall back
// to, is owner-goroutine-only.
//
// A pointer into a single-unit span is first rounded down to the start of
// its block, so an interior pointer from the aligned family frees the
// whole block.
//
// The one-span class has exactly one block per span (block_max == 1), so
// freeing it always empties the whole span; it goes straight back to the
// arena's single-span cache rather than through the free-list/partial-list
// dance small and medium spans use, the same way jdzmalloc.c's jdzfree
// branches span_count == 1 with block_size > MEDIUM_MAX into
// _jdz_arena_cache_span_or_free directly. That C branch is marked "TODO:
// NOT THREADSAFE" because it writes the cache from whichever thread calls
// free; spanCache here is documented owner-goroutine-only, so a foreign
// free of a one-span-class block instead goes through the same deferred
// handoff small/medium spans use, and the owner folds it back in next time
// it drains its deferred partials.
func (c *Cache) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	s := spanFromPtr(ptr)
	if s.spanCount == 0 {
		return
	}
	owner := c.arena.owner.arenaByID(s.arenaID)

	if s.spanCount == 1 {
		off := (uintptr(ptr) - s.baseAddr() - spanHeaderSize) % uintptr(s.class.blockSize)
		ptr = unsafe.Pointer(uintptr(ptr) - off)
	}

	switch {
	case s.spanCount > 1:
		if owner == c.arena {
			owner.cacheLargeSpanOrFree(s)
		} else if s.spanCount > spanCountForLarge(largeMax) || !owner.largeCache[s.spanCount-2].tryWrite(s) {
			owner.unmapSpan(s)
		}

	case s.class.classIdx == spanClassIdx:
		if owner == c.arena {
			owner.cacheSpanOrFree(s)
		} else {
			s.pushDeferredFreeList(ptr)
			owner.handleSpanNoLongerFullDeferred(s)
		}

	default:
		if owner == c.arena {
			s.pushFreeList(ptr)
			owner.handleSpanNoLongerFull(s)
		} else {
			s.pushDeferredFreeList(ptr)
			owner.handleSpanNoLongerFullDeferred(s)
		}
	}
}

// UsableSize returns the number of bytes actually reserved for ptr's
// block, which may exceed the size originally requested.
func UsableSize(ptr unsafe.Pointer) uintptr {
	if ptr == nil {
		return 0
	}
	s := spanFromPtr(ptr)
	if s.spanCount > 1 || s.class.classIdx == spanClassIdx {
		return uintptr(s.spanCount)*spanSize - spanHeaderSize
	}
	return uintptr(s.class.blockSize)
}
