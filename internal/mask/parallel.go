package mask

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minRowsPerJob keeps tiny images from being split into goroutines that
// each do a handful of pixels.
const minRowsPerJob = 16

// CompositeParallel computes the same result as Composite, splitting the rows
// across at most workers goroutines. workers <= 0 uses GOMAXPROCS.
//
// If ctx is cancelled before every row is done, the partial output is dropped
// and ctx.Err() is returned.
func CompositeParallel(ctx context.Context, main, mask []uint8, width, height, workers int) ([]uint8, error) {
	if err := validate(main, mask, width, height); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rowsPerJob := max(minRowsPerJob, (height+workers-1)/workers)
	stride := width * bytesPerPixel
	out := make([]uint8, len(main))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += rowsPerJob {
		if gctx.Err() != nil {
			break
		}
		lo := y0 * stride
		hi := min(y0+rowsPerJob, height) * stride
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			apply(out[lo:hi], main[lo:hi], mask[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("composite rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
