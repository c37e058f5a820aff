package jdz

import "sync"

// sizeClass is an immutable (block size, block count, class index) bucket.
// Once the tables below are built at package initialization they are never
// mutated again; lookups are pure arithmetic.
type sizeClass struct {
	blockSize uint32
	blockMax  uint16
	classIdx  uint16
}

var (
	smallSizeClasses  [smallClassCount]sizeClass
	mediumSizeClasses [mediumClassCount]sizeClass

	// oneSpanClass describes the whole-payload, single-block allocation
	// used when a request is larger than mediumMax but still fits a
	// single span.
	oneSpanClass = sizeClass{
		blockSize: spanEffectiveSize,
		blockMax:  1,
		classIdx:  spanClassIdx,
	}

	sizeClassesOnce sync.Once
)

func ensureSizeClassesBuilt() {
	sizeClassesOnce.Do(buildSizeClasses)
}

func init() { ensureSizeClassesBuilt() }

func buildSizeClasses() {
	for i := 0; i < smallClassCount; i++ {
		blockSize := uint32((i + 1) * smallGranularity)
		smallSizeClasses[i] = sizeClass{
			blockSize: blockSize,
			blockMax:  uint16(spanEffectiveSize / blockSize),
			classIdx:  uint16(i),
		}
	}
	mergeSizeClasses(smallSizeClasses[:])

	for i := 0; i < mediumClassCount; i++ {
		blockSize := uint32(smallMax + (i+1)*mediumGranularity)
		mediumSizeClasses[i] = sizeClass{
			blockSize: blockSize,
			blockMax:  uint16(spanEffectiveSize / blockSize),
			classIdx:  uint16(smallClassCount + i),
		}
	}
	mergeSizeClasses(mediumSizeClasses[:])

	assert(smallSizeClasses[0].blockSize == smallGranularity, "first small class must be one granularity")
	assert(smallSizeClasses[smallClassCount-1].blockSize == smallMax, "last small class must collapse to smallMax")
	assert(mediumSizeClasses[0].blockSize == smallMax+mediumGranularity, "first medium class must be smallMax+granularity")
	assert(mediumSizeClasses[mediumClassCount-1].blockSize == mediumMax, "last medium class must collapse to mediumMax")
}

// mergeSizeClasses scans top-down and collapses a class into the one above
// it whenever they'd hold the same maximum block count -- except when the
// upper class's block size is a power of two, which is preserved so that
// alignment queries (AlignedAlloc et al.) can still find an exact class.
func mergeSizeClasses(classes []sizeClass) {
	for i := len(classes) - 1; i > 0; i-- {
		if classes[i].blockMax != classes[i-1].blockMax {
			continue
		}
		if isPowerOfTwo(classes[i].blockSize) {
			continue
		}
		classes[i-1].blockSize = classes[i].blockSize
		classes[i-1].classIdx = classes[i].classIdx
	}
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

func classForSmall(size uintptr) sizeClass {
	assertf(size <= smallMax, "size %d exceeds smallMax", size)
	return smallSizeClasses[(size-1)>>smallGranularityShift]
}

func classForMedium(size uintptr) sizeClass {
	assertf(size > smallMax && size <= mediumMax, "size %d out of medium range", size)
	return mediumSizeClasses[(size-smallMax-1)>>mediumGranularityShift]
}

// spanCountForLarge returns the number of span units needed so that a
// single header plus the requested payload fits: usable capacity for n
// units is n*spanSize - spanHeaderSize, since only the first unit carries a
// header.
func spanCountForLarge(size uintptr) uint32 {
	return uint32((size + spanHeaderSize + spanSize - 1) / spanSize)
}
