package jdz

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeferredSpanListSingleWriterRoundTrip(t *testing.T) {
	ensureSizeClassesBuilt()
	class := classForSmall(32)
	var l deferredSpanList

	require.Nil(t, l.getAndRemoveList())

	s := linkableSpan(t, class)
	l.write(s)

	got := l.getAndRemoveList()
	require.Equal(t, s, got)
	require.Nil(t, got.next)
	require.Nil(t, l.getAndRemoveList(), "list must be empty after the swap")
}

func TestDeferredSpanListConcurrentWriters(t *testing.T) {
	ensureSizeClassesBuilt()
	class := classForSmall(32)
	var l deferredSpanList

	const writers = 16
	spans := make([]*span, writers)
	for i := range spans {
		spans[i] = linkableSpan(t, class)
	}

	var wg sync.WaitGroup
	for i := range spans {
		wg.Add(1)
		go func(s *span) {
			defer wg.Done()
			l.write(s)
		}(spans[i])
	}
	wg.Wait()

	seen := map[*span]bool{}
	for s := l.getAndRemoveList(); s != nil; s = s.next {
		seen[s] = true
	}
	require.Len(t, seen, writers)
	for _, s := range spans {
		require.True(t, seen[s])
	}
}
