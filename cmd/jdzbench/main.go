// Command jdzbench drives the allocator with several concurrent handles,
// mixing small, medium, and large request sizes and a configurable share
// of cross-handle frees, and reports throughput.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/joadnacer/jdz-allocator"
)

func main() {
	handles := flag.Int("handles", 8, "number of concurrent jdz.Cache handles")
	duration := flag.Duration("duration", 2*time.Second, "how long to run")
	maxSize := flag.Int("max-size", 8192, "largest allocation request, in bytes")
	crossFreePct := flag.Int("cross-free-pct", 10, "percentage of frees handed to a different handle's queue")
	flag.Parse()

	alloc := jdz.Init()
	caches := make([]*jdz.Cache, *handles)
	for i := range caches {
		caches[i] = alloc.ThreadInit()
	}

	var allocCount, freeCount int64
	crossFree := make(chan unsafe.Pointer, 4096)

	stop := time.Now().Add(*duration)
	var wg sync.WaitGroup
	for i := 0; i < *handles; i++ {
		wg.Add(1)
		go func(c *jdz.Cache) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			var held []unsafe.Pointer

			for time.Now().Before(stop) {
				size := uintptr(rng.Intn(*maxSize) + 1)
				ptr := c.Allocate(size)
				if ptr == nil {
					continue
				}
				atomic.AddInt64(&allocCount, 1)
				held = append(held, ptr)

				if len(held) > 256 {
					victim := held[0]
					held = held[1:]
					if rng.Intn(100) < *crossFreePct {
						select {
						case crossFree <- victim:
						default:
							c.Free(victim)
							atomic.AddInt64(&freeCount, 1)
						}
					} else {
						c.Free(victim)
						atomic.AddInt64(&freeCount, 1)
					}
				}
			}

			for _, ptr := range held {
				c.Free(ptr)
				atomic.AddInt64(&freeCount, 1)
			}
		}(caches[i])
	}

	drainer := alloc.ThreadInit()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ptr := <-crossFree:
				drainer.Free(ptr)
				atomic.AddInt64(&freeCount, 1)
			case <-done:
				return
			}
		}
	}()

	wg.Wait()
	close(done)

	for _, c := range caches {
		c.ThreadDeinit(true)
	}

	fmt.Printf("allocations: %d\nfrees:       %d\nrate:        %.0f allocs/sec\n",
		allocCount, freeCount, float64(allocCount)/duration.Seconds())
}
