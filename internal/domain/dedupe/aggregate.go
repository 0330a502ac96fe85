package dedupe

import (
	"context"

	"github.com/aerodrift/constellation/internal/domain/model"
)

// Aggregate merges per-hour record batches into one deduplicated ordered
// set. Batches must arrive in hour-ascending order (hour 0 = most recent)
// with records in enumeration order; the first record to claim a dedup key
// wins and later holders are silently dropped. The input order is
// load-bearing: the output depends only on hour index and per-hour record
// order, never on fetch completion order.
func Aggregate(ctx context.Context, batches [][]model.Record) []model.Record {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	d := NewInMemoryDeduper(WithExpectedSize(total))

	out := make([]model.Record, 0, total)
	for _, batch := range batches {
		for _, rec := range batch {
			if d.SeenAndRecord(ctx, rec.Key()) {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}
