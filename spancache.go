package jdz

// spanCache is a per-arena bounded LIFO of single-unit spans awaiting
// reuse. It is touched only by the arena's owning goroutine, so it needs no
// synchronization of its own.
type spanCache struct {
	limit int
	buf   []*span
}

func newSpanCache(limit int) spanCache {
	return spanCache{limit: limit, buf: make([]*span, 0, limit)}
}

func (c *spanCache) tryWrite(s *span) bool {
	if len(c.buf) == c.limit {
		return false
	}
	c.buf = append(c.buf, s)
	return true
}

// tryRead pops a cached span. If it happens to cover more than one span
// unit (which can happen when a larger cached span was split and its
// remainder pushed here), the first unit is split off and the remainder is
// written back before the first unit is returned.
func (c *spanCache) tryRead() *span {
	if len(c.buf) == 0 {
		return nil
	}
	n := len(c.buf) - 1
	s := c.buf[n]
	c.buf[n] = nil
	c.buf = c.buf[:n]

	if s.spanCount > 1 {
		remaining := splitFirstSpanReturnRemaining(s)
		ok := c.tryWrite(remaining)
		assert(ok, "span cache overflowed while writing back a split remainder")
	}
	return s
}

func (c *spanCache) len() int { return len(c.buf) }

// drain empties the cache, handing every entry to release (typically
// unmapSpan). Used when an arena is being torn down.
func (c *spanCache) drain(release func(*span)) {
	for _, s := range c.buf {
		release(s)
	}
	c.buf = c.buf[:0]
}
