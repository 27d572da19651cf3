package retro

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/eob-report/internal/model"
)

// ComputeParallel is Compute partitioned by entity across workers. The
// rule has no cross-entity state, so the partitioning is purely a
// throughput optimization; results are identical to the serial path.
func ComputeParallel(ctx context.Context, rows []model.EOBHistoryRow, window Window, workers int) (map[string]int, error) {
	if workers < 1 {
		workers = 1
	}

	pairs, err := index(rows)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(pairs))
	for id := range pairs {
		ids = append(ids, id)
	}

	out := make(map[string]int, len(pairs))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	shardSize := (len(ids) + workers - 1) / workers
	for start := 0; start < len(ids); start += shardSize {
		end := min(start+shardSize, len(ids))
		shard := ids[start:end]

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := make(map[string]int, len(shard))
			for _, id := range shard {
				local[id] = decide(pairs[id], window)
			}
			mu.Lock()
			for id, months := range local {
				out[id] = months
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
