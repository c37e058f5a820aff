package jdz

// Config carries every tunable the allocator exposes, all defaulted. A
// Config is only ever read after Init builds the Allocator; there is no
// supported way to mutate it afterwards (spec.md section 9: "the
// implementation should accept these at initialization and treat them as
// immutable thereafter").
type Config struct {
	// SpanAllocCount is the batch size, in span units, for a single-unit
	// OS mapping: one mmap call yields this many units, the first is
	// returned and the rest are cached.
	SpanAllocCount int

	// MapAllocCount is the batch size, in span units, for every OS
	// mapping; anything beyond what was requested is cached.
	MapAllocCount int

	// CacheLimit is the capacity of the per-arena single-span cache.
	CacheLimit int

	// LargeCacheLimit is the capacity of each per-arena large-span MPSC
	// cache. The ring size is fixed at compile time, so this must equal
	// largeCacheSize (64); Init panics on any other value.
	LargeCacheLimit int

	// LargeSpanOverheadMul is the fractional over-search applied to the
	// requested span count when probing the large-span caches: a request
	// for n units will also accept a cached span of up to
	// n*(1+LargeSpanOverheadMul) units.
	LargeSpanOverheadMul float64

	// RecycleLargeSpans, if true, salvages a multi-unit span that has no
	// room in its large cache by peeling it into individual span units
	// and offering each to the single-span cache, unmapping only what
	// still doesn't fit, instead of unmapping the whole span.
	RecycleLargeSpans bool

	// SplitLargeSpansToOne, if true, allows a small/medium allocation
	// that misses every cache to split a unit off a cached large span
	// rather than mapping fresh memory.
	SplitLargeSpansToOne bool

	// SplitLargeSpansToLarge, if true, allows a large allocation that
	// misses its own size's cache to split a still-larger cached span
	// down to the size needed.
	SplitLargeSpansToLarge bool
}

// Option mutates a Config under construction.
type Option func(*Config)

func WithSpanAllocCount(n int) Option       { return func(c *Config) { c.SpanAllocCount = n } }
func WithMapAllocCount(n int) Option        { return func(c *Config) { c.MapAllocCount = n } }
func WithCacheLimit(n int) Option           { return func(c *Config) { c.CacheLimit = n } }
func WithLargeCacheLimit(n int) Option      { return func(c *Config) { c.LargeCacheLimit = n } }
func WithLargeSpanOverheadMul(f float64) Option {
	return func(c *Config) { c.LargeSpanOverheadMul = f }
}
func WithRecycleLargeSpans(b bool) Option        { return func(c *Config) { c.RecycleLargeSpans = b } }
func WithSplitLargeSpansToOne(b bool) Option     { return func(c *Config) { c.SplitLargeSpansToOne = b } }
func WithSplitLargeSpansToLarge(b bool) Option   { return func(c *Config) { c.SplitLargeSpansToLarge = b } }

// DefaultConfig returns the allocator's defaults: a 64-unit (4 MiB) mapping
// batch with one span of alignment padding, 64-entry single-span and
// large-span caches, 20% overhead tolerance on large-cache probes, and
// every splitting/recycling knob enabled.
func DefaultConfig() Config {
	return Config{
		SpanAllocCount:         64,
		MapAllocCount:          64,
		CacheLimit:             64,
		LargeCacheLimit:        largeCacheSize,
		LargeSpanOverheadMul:   0.2,
		RecycleLargeSpans:      true,
		SplitLargeSpansToOne:   true,
		SplitLargeSpansToLarge: true,
	}
}

func buildConfig(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	assertf(cfg.LargeCacheLimit == largeCacheSize,
		"LargeCacheLimit must equal %d (the compiled-in ring size); got %d", largeCacheSize, cfg.LargeCacheLimit)
	return cfg
}
