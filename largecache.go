package jdz

import "sync/atomic"

// largeCacheMask turns the ring index modulo into a bitmask op; largeCacheSize
// is required to be a power of two.
const largeCacheMask = largeCacheSize - 1

type largeCacheCell struct {
	seq  uint64
	span *span
}

// mpscLargeCache is a bounded, array-based multi-producer/single-consumer
// queue, a direct translation of Dmitry Vyukov's bounded MPMC queue
// restricted to a single consumer. It backs the per-large-span-count
// caches an arena keeps for spans covering two or more units.
type mpscLargeCache struct {
	enqueuePos uint64 // atomic
	dequeuePos uint64 // not atomic: touched only by the single consumer
	buffer     [largeCacheSize]largeCacheCell
}

func (c *mpscLargeCache) init() {
	for i := range c.buffer {
		c.buffer[i].seq = uint64(i)
	}
	c.enqueuePos = 0
	c.dequeuePos = 0
}

// tryWrite enqueues span. Any number of goroutines may call this
// concurrently. Returns false if the queue is full.
func (c *mpscLargeCache) tryWrite(s *span) bool {
	pos := atomic.LoadUint64(&c.enqueuePos)

	for {
		cell := &c.buffer[pos&largeCacheMask]
		seq := atomic.LoadUint64(&cell.seq)
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&c.enqueuePos, pos, pos+1) {
				cell.span = s
				atomic.StoreUint64(&cell.seq, pos+1)
				return true
			}
		case diff < 0:
			return false
		default:
			pos = atomic.LoadUint64(&c.enqueuePos)
			continue
		}
	}
}

// tryRead dequeues a span. Only the arena's owning goroutine may call this.
// Returns nil if the queue is empty.
func (c *mpscLargeCache) tryRead() *span {
	cell := &c.buffer[c.dequeuePos&largeCacheMask]
	seq := atomic.LoadUint64(&cell.seq)
	diff := int64(seq) - int64(c.dequeuePos+1)
	if diff != 0 {
		return nil
	}

	c.dequeuePos++
	s := cell.span
	cell.span = nil
	atomic.StoreUint64(&cell.seq, c.dequeuePos+largeCacheMask)
	return s
}
