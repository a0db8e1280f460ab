package flatten

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/jflat/record"
)

// All flattens every record of set, returning results in input order.
//
// With workers > 1 and at least threshold records the work is spread over a
// bounded goroutine pool. Each worker writes only its own slot of the result
// slice, so row N of the output always corresponds to record N of the input.
// onRecord, if set, is called once per flattened record from worker goroutines
// and must not block.
func (f *Flattener) All(ctx context.Context, set record.Set, workers, threshold int, onRecord func()) ([]Record, error) {
	out := make([]Record, len(set))

	if workers <= 1 || len(set) < threshold {
		for i, v := range set {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := f.Flatten(i, v)
			if err != nil {
				return nil, err
			}
			out[i] = r
			if onRecord != nil {
				onRecord()
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// Hand out contiguous index ranges so goroutine count stays proportional to workers
	chunk := (len(set) + workers*4 - 1) / (workers * 4)
	for start := 0; start < len(set); start += chunk {
		start, end := start, min(start+chunk, len(set))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := f.Flatten(i, set[i])
				if err != nil {
					return err
				}
				out[i] = r
				if onRecord != nil {
					onRecord()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
