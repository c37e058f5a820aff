package jdz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeOneUnitSpan(t *testing.T) *span {
	t.Helper()
	return mapTestSpans(t, 1)
}

func TestSpanCacheWriteReadRoundTrip(t *testing.T) {
	c := newSpanCache(4)
	s := makeOneUnitSpan(t)

	require.True(t, c.tryWrite(s))
	require.Equal(t, 1, c.len())

	got := c.tryRead()
	require.Equal(t, s, got)
	require.Equal(t, 0, c.len())
	require.Nil(t, c.tryRead())
}

func TestSpanCacheRespectsLimit(t *testing.T) {
	c := newSpanCache(2)
	require.True(t, c.tryWrite(makeOneUnitSpan(t)))
	require.True(t, c.tryWrite(makeOneUnitSpan(t)))
	require.False(t, c.tryWrite(makeOneUnitSpan(t)), "write beyond limit must fail")
}

func TestSpanCacheSplitsMultiUnitOnRead(t *testing.T) {
	c := newSpanCache(4)
	s := mapTestSpans(t, 3)
	require.True(t, c.tryWrite(s))

	first := c.tryRead()
	require.EqualValues(t, 1, first.spanCount)
	require.Equal(t, s.baseAddr(), first.baseAddr())

	// the 2-unit remainder should have been written back
	require.Equal(t, 1, c.len())
	second := c.tryRead()
	require.EqualValues(t, 2, second.spanCount)
	require.Equal(t, s.baseAddr()+spanSize, second.baseAddr())
}

func TestSpanCacheDrain(t *testing.T) {
	c := newSpanCache(4)
	require.True(t, c.tryWrite(makeOneUnitSpan(t)))
	require.True(t, c.tryWrite(makeOneUnitSpan(t)))

	var released []*span
	c.drain(func(s *span) { released = append(released, s) })

	require.Len(t, released, 2)
	require.Equal(t, 0, c.len())
}
