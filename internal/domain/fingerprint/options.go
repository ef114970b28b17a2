package fingerprint

// Option applies a configuration option to the in-memory index.
type Option func(*memoryIndex)

// WithMaxSize bounds the number of keys kept in memory. Bounded mode
// evicts the oldest keys; maxSize <= 0 disables eviction entirely.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryIndex) {
		d.maxSize = maxSize
	}
}
