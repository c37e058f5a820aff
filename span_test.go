package jdz

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// mapTestSpans maps exactly want usable span units, over-mapping by one
// unit of alignment padding and trimming any excess, mirroring what
// arena.go's mapSpans does around instantiateMappedSpan.
func mapTestSpans(t *testing.T, want uint32) *span {
	t.Helper()
	mapCount := want + 1
	raw, size := mapRegion(uintptr(mapCount) * spanSize)
	require.NotZero(t, raw)
	t.Cleanup(func() { unmapRegion(raw, size) })

	if raw&spanSizeMask != 0 {
		mapCount--
	}
	s := instantiateMappedSpan(raw, size, mapCount)
	if s.spanCount > want {
		// splitFirstSpansReturnRemaining trims s down to exactly want
		// units in place; the split-off remainder's memory is still
		// released by the single unmapRegion(raw, size) cleanup above.
		splitFirstSpansReturnRemaining(s, want)
	}
	return s
}

func newTestSpan(t *testing.T, arenaID uint32, class sizeClass) *span {
	t.Helper()
	s := mapTestSpans(t, 1)
	return initFreshSpan(s.baseAddr(), arenaID, class)
}

func TestSpanFromPtrRecoversHeader(t *testing.T) {
	ensureSizeClassesBuilt()
	class := classForSmall(32)
	s := newTestSpan(t, 7, class)

	ptr := s.allocateFromFresh()
	require.Equal(t, s, spanFromPtr(ptr))

	interior := unsafe.Pointer(uintptr(ptr) + 4)
	require.Equal(t, s, spanFromPtr(interior))
}

func TestSpanLocalFreeListRoundTrip(t *testing.T) {
	ensureSizeClassesBuilt()
	class := classForSmall(64)
	s := newTestSpan(t, 0, class)

	a := s.allocateFromFresh()
	b := s.allocate()
	require.NotEqual(t, a, b)
	require.EqualValues(t, 2, s.blockCount)

	s.pushFreeList(a)
	require.EqualValues(t, 1, s.blockCount)
	require.False(t, s.isEmpty())

	s.pushFreeList(b)
	require.True(t, s.isEmpty())

	c := s.allocate()
	require.Equal(t, b, c, "LIFO free list should return the most recently freed block first")
}

func TestSpanDeferredFreeDrain(t *testing.T) {
	ensureSizeClassesBuilt()
	class := classForSmall(32)
	s := newTestSpan(t, 0, class)

	a := s.allocateFromFresh()
	b := s.allocate()
	require.EqualValues(t, 2, s.blockCount)

	s.pushDeferredFreeList(a)
	s.pushDeferredFreeList(b)
	require.EqualValues(t, 2, s.blockCount, "deferred pushes must not touch blockCount directly")

	require.True(t, s.drainDeferredFreeList())
	require.EqualValues(t, 0, s.blockCount)
	require.True(t, s.isEmpty())

	require.False(t, s.drainDeferredFreeList(), "draining an already-empty deferred list reports false")
}

func TestSpanFullTransition(t *testing.T) {
	ensureSizeClassesBuilt()
	class := classForSmall(smallMax) // blockMax should be small, easy to exhaust
	s := newTestSpan(t, 0, class)

	var last unsafe.Pointer
	for i := 0; i < int(class.blockMax); i++ {
		last = s.allocate()
	}
	require.True(t, s.isFull())

	s.markFull()
	require.True(t, s.clearFullIfSet())
	require.False(t, s.clearFullIfSet(), "clearFullIfSet must only fire once")

	s.pushFreeList(last)
	require.False(t, s.isFull())
}

func TestSplitFirstSpansReturnRemaining(t *testing.T) {
	s := mapTestSpans(t, 4)
	total := s.allocSize
	require.EqualValues(t, 4, s.spanCount)

	remaining := splitFirstSpansReturnRemaining(s, 1)
	require.EqualValues(t, 1, s.spanCount)
	require.EqualValues(t, 3, remaining.spanCount)
	require.Equal(t, s.baseAddr()+spanSize, remaining.baseAddr())
	require.Equal(t, s.allocSize+remaining.allocSize, total)
}
