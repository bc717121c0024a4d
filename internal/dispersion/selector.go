package dispersion

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geosample-cli/internal/geodist"
	"github.com/sells-group/geosample-cli/internal/model"
)

// Selector builds an initial selection using the greedy max-min dispersion
// heuristic: seed with the most populous city, then repeatedly add the
// candidate whose minimum distance to all current members is largest.
type Selector struct {
	// Workers shards the per-round candidate scan across goroutines.
	// Zero or one means sequential. Results are identical either way:
	// ties resolve to the lowest city ID regardless of shard order.
	Workers int
}

// candidate pairs a pool entry with its cached isolation score, the minimum
// distance to any already-selected member.
type candidate struct {
	city    model.City
	minDist float64
	taken   bool
}

// Select returns up to n cities from pool. If the pool is smaller than n the
// target is reduced and an insufficient-candidates warning is returned
// instead of an error.
func (s *Selector) Select(ctx context.Context, pool []model.City, n int) (model.Selection, []model.Warning, error) {
	if n <= 0 {
		return nil, nil, eris.Errorf("dispersion: target size must be positive, got %d", n)
	}

	log := zap.L().With(zap.String("component", "dispersion.selector"))

	var warnings []model.Warning
	if len(pool) < n {
		msg := fmt.Sprintf("only %d candidates available, less than requested %d", len(pool), n)
		log.Warn("reducing selection size", zap.Int("available", len(pool)), zap.Int("requested", n))
		warnings = append(warnings, model.Warning{Kind: model.WarnInsufficientCandidates, Message: msg})
		n = len(pool)
	}
	if n == 0 {
		return model.Selection{}, warnings, nil
	}

	// Order by descending population, ties by ascending ID, so the seed and
	// every later tie-break are reproducible.
	ordered := make([]candidate, len(pool))
	for i, c := range pool {
		ordered[i] = candidate{city: c, minDist: math.Inf(1)}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].city.Population != ordered[j].city.Population {
			return ordered[i].city.Population > ordered[j].city.Population
		}
		return ordered[i].city.ID < ordered[j].city.ID
	})

	idx := newSelectionIndex(n)
	idx.add(ordered[0].city)
	ordered[0].taken = true
	newest := ordered[0].city

	for idx.size() < n {
		if err := ctx.Err(); err != nil {
			return nil, warnings, eris.Wrap(err, "dispersion: select cancelled")
		}

		best, err := s.scoreRound(ctx, ordered, newest)
		if err != nil {
			return nil, warnings, err
		}

		ordered[best].taken = true
		newest = ordered[best].city
		idx.add(newest)

		log.Debug("greedy pick",
			zap.Int("round", idx.size()),
			zap.Int64("city_id", newest.ID),
			zap.String("city", newest.Name),
			zap.Float64("isolation_km", ordered[best].minDist),
		)
	}

	log.Info("greedy selection complete",
		zap.Int("selected", idx.size()),
		zap.Int("pool", len(pool)),
	)
	return idx.selection(), warnings, nil
}

// scoreRound folds the newest pick into each unselected candidate's cached
// isolation score and returns the index of the best candidate. Scores only
// shrink, so updating against the newest member alone is equivalent to
// rescanning the whole selection.
func (s *Selector) scoreRound(ctx context.Context, ordered []candidate, newest model.City) (int, error) {
	if s.Workers <= 1 || len(ordered) < 2*minShardSize {
		best := updateRange(ordered, 0, len(ordered), newest.Point())
		if best < 0 {
			return -1, eris.New("dispersion: no unselected candidate left")
		}
		return best, nil
	}

	shards := s.Workers
	if max := len(ordered) / minShardSize; shards > max {
		shards = max
	}
	bests := make([]int, shards)

	g, _ := errgroup.WithContext(ctx)
	step := (len(ordered) + shards - 1) / shards
	for w := 0; w < shards; w++ {
		lo := w * step
		hi := lo + step
		if hi > len(ordered) {
			hi = len(ordered)
		}
		g.Go(func() error {
			bests[w] = updateRange(ordered, lo, hi, newest.Point())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return -1, eris.Wrap(err, "dispersion: parallel scoring")
	}

	// Deterministic reduction: per-shard winners compared with the same
	// score-then-ID ordering used inside each shard.
	best := -1
	for _, b := range bests {
		if b < 0 {
			continue
		}
		if best < 0 || better(ordered[b], ordered[best]) {
			best = b
		}
	}
	if best < 0 {
		return -1, eris.New("dispersion: no unselected candidate left")
	}
	return best, nil
}

const minShardSize = 256

// updateRange refreshes cached scores for ordered[lo:hi] against the newest
// selection member and returns the index of the best unselected candidate in
// the range, or -1 if none.
func updateRange(ordered []candidate, lo, hi int, newest geodist.Point) int {
	best := -1
	for i := lo; i < hi; i++ {
		if ordered[i].taken {
			continue
		}
		if d := geodist.Haversine(ordered[i].city.Point(), newest); d < ordered[i].minDist {
			ordered[i].minDist = d
		}
		if best < 0 || better(ordered[i], ordered[best]) {
			best = i
		}
	}
	return best
}

// better reports whether a should be picked over b: higher isolation score
// wins, ties go to the lower city ID.
func better(a, b candidate) bool {
	if a.minDist != b.minDist {
		return a.minDist > b.minDist
	}
	return a.city.ID < b.city.ID
}
