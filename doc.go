// Package jdz is a general-purpose, process-wide dynamic memory allocator.
//
// It partitions allocation work across per-handle arenas so that most
// requests are served from thread-local free lists without any
// synchronization, falling back to bounded lock-free caches for span reuse
// and to direct mmap/munmap for requests too large to cache. The design
// follows joadnacer/jdz_allocator (a C mimalloc-style allocator): fixed
// size classes, 64 KiB-aligned spans whose header is recovered from any
// interior pointer by masking off the low bits, and a deferred-free
// protocol for memory freed by a goroutine other than the one whose arena
// owns it.
//
// Go has no supported thread-local storage, so the arena handle that the
// C version keeps in a TLS slot is instead returned explicitly by
// ThreadInit and passed to the allocation methods on Cache, including
// Free: a block's owning arena is always recovered from its span header,
// but deciding whether a free is local or must be deferred to that owner
// still requires comparing it against the caller's own handle.
package jdz
