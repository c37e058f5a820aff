package jdz

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// span is the header of a naturally-aligned, spanSize-multiple region of
// mmap'd memory. It lives at the very base of that region (address A with
// A mod spanSize == 0) so that spanFromPtr can recover it from any interior
// pointer by masking off the low bits -- the load-bearing invariant this
// whole allocator rests on (spec.md section 9, "span header recovery").
//
// arenaID is not a *arena: a span's header lives in memory the Go garbage
// collector does not scan, so a typed pointer to a live heap object stored
// there would not keep that object reachable. Allocator.registry keeps every
// handed-out arena alive for as long as it exists; arenaID is just an index
// into it.
type span struct {
	arenaID uint32
	class   sizeClass

	freeList unsafe.Pointer // single-threaded LIFO; owner only

	deferredLock     sync.RWMutex   // guards the drain; push only needs the reader side
	deferredFreeList unsafe.Pointer // atomic; access only via sync/atomic
	deferredFrees    uint32         // atomic; access only via sync/atomic

	blockCount uint32 // outstanding blocks; owner only

	allocPtr   uintptr // bump pointer for never-yet-allocated blocks
	initialPtr uintptr // base of the original mapping (may precede this span)
	allocSize  uintptr // total bytes mapped for this span's region
	spanCount  uint32  // number of span units this header covers

	next *span
	prev *span

	full int32 // atomic; 1 once block_count hits class.blockMax
}

func spanFromPtr(ptr unsafe.Pointer) *span {
	addr := uintptr(ptr) & spanUpperMask
	return (*span)(unsafe.Pointer(addr))
}

func (s *span) baseAddr() uintptr { return uintptr(unsafe.Pointer(s)) }

func (s *span) isFull() bool {
	return s.blockCount == uint32(s.class.blockMax) && atomic.LoadUint32(&s.deferredFrees) == 0
}

func (s *span) isEmpty() bool {
	return s.blockCount-atomic.LoadUint32(&s.deferredFrees) == 0
}

func (s *span) markFull() {
	atomic.StoreInt32(&s.full, 1)
}

// clearFullIfSet is the mandated compare-and-swap transition: exactly one
// caller observes "was full, now isn't" and is responsible for handing the
// span back to a partial list.
func (s *span) clearFullIfSet() bool {
	return s.full != 0 && atomic.CompareAndSwapInt32(&s.full, 1, 0)
}

// --- local (owner-only) free list ---

func (s *span) pushFreeList(block unsafe.Pointer) {
	*(*unsafe.Pointer)(block) = s.freeList
	s.freeList = block
	s.blockCount--
}

func (s *span) popFreeList() unsafe.Pointer {
	assert(s.freeList != nil, "popFreeList on empty free list")
	block := s.freeList
	s.freeList = *(*unsafe.Pointer)(block)
	s.blockCount++
	return block
}

// --- deferred (cross-thread) free list ---

func (s *span) pushDeferredFreeList(block unsafe.Pointer) {
	s.deferredLock.RLock()
	for {
		old := atomic.LoadPointer(&s.deferredFreeList)
		*(*unsafe.Pointer)(block) = old
		if atomic.CompareAndSwapPointer(&s.deferredFreeList, old, block) {
			break
		}
	}
	atomic.AddUint32(&s.deferredFrees, 1)
	s.deferredLock.RUnlock()
}

// drainDeferredFreeList moves the deferred list into the local free list.
// Returns false if there was nothing to drain.
func (s *span) drainDeferredFreeList() bool {
	if atomic.LoadPointer(&s.deferredFreeList) == nil {
		return false
	}
	assert(s.freeList == nil, "drainDeferredFreeList with non-empty local free list")

	s.deferredLock.Lock()
	s.freeList = s.deferredFreeList
	s.blockCount -= atomic.LoadUint32(&s.deferredFrees)
	s.deferredFreeList = nil
	atomic.StoreUint32(&s.deferredFrees, 0)
	s.deferredLock.Unlock()

	return true
}

// --- allocation paths ---

func (s *span) allocate() unsafe.Pointer {
	if s.freeList != nil {
		return s.popFreeList()
	}
	if s.drainDeferredFreeList() {
		return s.popFreeList()
	}
	return s.allocFromBumpPtr()
}

func (s *span) allocFromBumpPtr() unsafe.Pointer {
	assertf(s.allocPtr <= s.baseAddr()+spanSize-uintptr(s.class.blockSize),
		"bump pointer would overrun span payload")

	s.blockCount++
	res := unsafe.Pointer(s.allocPtr)
	s.allocPtr += uintptr(s.class.blockSize)
	return res
}

// allocateFromFresh serves the very first block of a span that has just
// been initialized for a size class.
func (s *span) allocateFromFresh() unsafe.Pointer {
	assert(s.isEmpty(), "allocateFromFresh on a non-empty span")
	res := unsafe.Pointer(s.allocPtr)
	s.allocPtr += uintptr(s.class.blockSize)
	s.blockCount = 1
	return res
}

// allocateFromLargeSpan serves the single block of a multi-unit span.
func (s *span) allocateFromLargeSpan() unsafe.Pointer {
	assert(s.isEmpty(), "allocateFromLargeSpan on a non-empty span")
	s.blockCount = 1
	return unsafe.Pointer(s.allocPtr)
}

// --- initialization ---

func initFreshSpan(base uintptr, arenaID uint32, class sizeClass) *span {
	s := (*span)(unsafe.Pointer(base))
	s.arenaID = arenaID
	s.allocPtr = base + spanHeaderSize
	s.class = class
	s.freeList = nil
	s.deferredFreeList = nil
	s.deferredFrees = 0
	s.full = 0
	s.next = nil
	s.prev = nil
	s.blockCount = 0
	s.spanCount = 1
	return s
}

// initFreshLargeSpan initializes only the fields meaningful for a
// single-block, multi-unit region; class/free lists are left undefined, as
// in the C original.
func initFreshLargeSpan(base uintptr, arenaID uint32, spanCount uint32) *span {
	s := (*span)(unsafe.Pointer(base))
	s.arenaID = arenaID
	s.allocPtr = base + spanHeaderSize
	s.next = nil
	s.prev = nil
	s.blockCount = 0
	s.spanCount = spanCount
	return s
}

// instantiateMappedSpan writes a span header at the first spanSize-aligned
// address within [rawPtr, rawPtr+allocSize), recording how much padding
// preceded it.
func instantiateMappedSpan(rawPtr, allocSize uintptr, mapCount uint32) *span {
	afterPad := rawPtr & spanSizeMask
	var beforePad uintptr
	if afterPad != 0 {
		beforePad = spanSize - afterPad
	}
	spanPtr := rawPtr + beforePad

	s := (*span)(unsafe.Pointer(spanPtr))
	s.initialPtr = rawPtr
	s.allocSize = allocSize
	s.spanCount = mapCount
	return s
}

// splitFirstSpansReturnRemaining splits off the first spanCount units of s
// as the (unchanged) head and returns the remainder as an independent,
// still-mappable span.
func splitFirstSpansReturnRemaining(s *span, spanCount uint32) *span {
	assertf(s.spanCount > spanCount, "split requires spanCount(%d) > %d", s.spanCount, spanCount)

	remainingBase := s.baseAddr() + uintptr(spanCount)*spanSize
	remaining := (*span)(unsafe.Pointer(remainingBase))
	remaining.spanCount = s.spanCount - spanCount
	remaining.allocSize = s.allocSize - (remainingBase - s.initialPtr)
	remaining.initialPtr = remainingBase

	s.spanCount = spanCount
	s.allocSize = remaining.initialPtr - s.initialPtr

	return remaining
}

func splitFirstSpanReturnRemaining(s *span) *span {
	return splitFirstSpansReturnRemaining(s, 1)
}
