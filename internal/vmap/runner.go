package vmap

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Run extracts tiles on a pool of workers and returns the run summary.
// workers <= 0 uses runtime.NumCPU(). A failed tile never stops the others;
// canceling ctx stops dispatching new tiles and lets running ones finish.
func Run(ctx context.Context, rc *RunContext, tiles []TileKey, workers int) *Summary {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tiles) && len(tiles) > 0 {
		workers = len(tiles)
	}

	sum := NewSummary(rc.OutDir)
	rc.Log.Info("starting extraction",
		zap.String("run_id", sum.RunID),
		zap.Int("tiles", len(tiles)),
		zap.Int("workers", workers),
		zap.String("out", rc.OutDir))

	jobs := make(chan TileKey)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				res, err := ExtractTile(rc, key)
				if err != nil {
					rc.Log.Warn("tile failed",
						zap.Stringer("tile", key),
						zap.Stringer("kind", Kind(err)),
						zap.Error(err))
				}
				sum.AddTile(res, err)
			}
		}()
	}

dispatch:
	for _, key := range tiles {
		if ctx.Err() != nil {
			sum.Canceled = true
			break
		}
		select {
		case <-ctx.Done():
			sum.Canceled = true
			break dispatch
		case jobs <- key:
		}
	}
	close(jobs)
	wg.Wait()

	sum.finish(rc.Registry)
	rc.Log.Info("extraction finished",
		zap.String("run_id", sum.RunID),
		zap.Int("tiles_ok", sum.TilesOK),
		zap.Int("tiles_failed", sum.TilesFailed),
		zap.Int("models_compiled", sum.ModelsCompiled),
		zap.Int("models_failed", sum.ModelsFailed),
		zap.Int("placements", sum.PlacementsWritten),
		zap.Int("skipped", sum.PlacementsSkipped),
		zap.Duration("duration", sum.Duration),
		zap.Bool("canceled", sum.Canceled))
	return sum
}
