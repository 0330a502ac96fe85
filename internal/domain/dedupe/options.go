// Package dedupe removes duplicate observations while merging per-hour
// record batches into one aggregate set.
package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithExpectedSize pre-sizes the key map. It is a hint, not a bound; the
// deduper never evicts.
func WithExpectedSize(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.expectedSize = n
		}
	}
}
