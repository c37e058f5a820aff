package jdz

// spanList is a doubly-linked list of partially-used spans for one
// (arena, size class) pair. Only the arena's owning goroutine touches it.
type spanList struct {
	head *span
	tail *span
}

func (l *spanList) assertNotLinked(s *span) {
	assert(s.next == nil, "span already linked (next)")
	assert(s.prev == nil, "span already linked (prev)")
}

func resetSpanLinks(s *span) {
	s.next = nil
	s.prev = nil
}

func (l *spanList) remove(s *span) {
	assert(s.prev != s.next || s.prev == nil, "corrupt span list (prev == next)")

	if s.prev != nil {
		s.prev.next = s.next
	} else {
		l.head = s.next
	}

	if s.next != nil {
		s.next.prev = s.prev
	} else {
		l.tail = s.prev
	}

	resetSpanLinks(s)
}

func (l *spanList) removeGetNext(s *span) *span {
	next := s.next
	l.remove(s)
	return next
}

// write appends a single, not-yet-linked span at the tail.
func (l *spanList) write(s *span) {
	l.assertNotLinked(s)

	if l.tail != nil {
		l.tail.next = s
		s.prev = l.tail
		l.tail = s
	} else {
		l.head = s
		l.tail = s
	}
}

// writeLinked appends a pre-linked chain of spans, used to bulk-transfer a
// drained deferred-partial list.
func (l *spanList) writeLinked(chain *span) {
	if l.tail != nil {
		l.tail.next = chain
		chain.prev = l.tail
	} else {
		l.head = chain
	}

	s := chain
	for s.next != nil {
		s.next.prev = s
		s = s.next
	}
	l.tail = s
}

// tryRead returns the head without removing it.
func (l *spanList) tryRead() *span {
	return l.head
}

func (l *spanList) removeHead() {
	assert(l.head != nil, "removeHead on empty span list")

	head := l.head
	l.head = head.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	resetSpanLinks(head)
}

// getEmptySpans unlinks every empty span in the list and returns them
// linked together as an independent chain (nil if none were empty).
func (l *spanList) getEmptySpans() *span {
	if l.head == nil {
		return nil
	}

	var emptyHead, emptyTail *span

	s := l.head
	for s != nil {
		assert(s != s.next, "span list cycle detected")

		if s.isEmpty() {
			next := l.removeGetNext(s)

			if emptyTail != nil {
				emptyTail.next = s
				s.prev = emptyTail
				emptyTail = s
			} else {
				emptyHead = s
				emptyTail = s
			}

			s = next
		} else {
			s = s.next
		}
	}

	return emptyHead
}
