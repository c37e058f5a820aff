package jdz

import (
	"sync/atomic"
	"unsafe"
)

// deferredSpanList is the atomic-swap MPSC channel arenas use to hand
// partial spans back to their owner from a foreign goroutine: any number of
// writers CAS-push, and the owner drains the whole chain in one atomic
// exchange. Ordering of spans within a single drain is not guaranteed.
type deferredSpanList struct {
	head unsafe.Pointer // *span
}

func (l *deferredSpanList) write(s *span) {
	for {
		old := atomic.LoadPointer(&l.head)
		s.next = (*span)(old)
		if atomic.CompareAndSwapPointer(&l.head, old, unsafe.Pointer(s)) {
			return
		}
	}
}

// getAndRemoveList atomically takes the entire chain, leaving the list
// empty, and returns its head (nil if it was already empty).
func (l *deferredSpanList) getAndRemoveList() *span {
	old := atomic.SwapPointer(&l.head, nil)
	return (*span)(old)
}
