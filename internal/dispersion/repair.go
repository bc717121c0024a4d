package dispersion

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geosample-cli/internal/geodist"
	"github.com/sells-group/geosample-cli/internal/model"
)

// DefaultMaxIterations bounds the repair loop. The loop normally terminates
// because every accepted swap strictly improves the offending distance, but
// a swap can create a new violation elsewhere, so an explicit budget guards
// against oscillation.
const DefaultMaxIterations = 1000

// Repairer enforces a minimum pairwise separation on a selection by swapping
// members of too-close pairs for better-separated candidates from the
// remaining pool. The result is best-effort: if no improving swap exists the
// violation is kept and reported as a warning.
type Repairer struct {
	MaxIterations int // zero means DefaultMaxIterations
}

// violation identifies the closest pair in a selection.
type violation struct {
	i, j int // positions, i < j
	dist float64
}

// Repair mutates sel in place until all pairwise distances reach minKm or no
// improving replacement exists. It returns the (possibly still violating)
// selection together with any unresolved-violation warnings.
func (r *Repairer) Repair(ctx context.Context, sel model.Selection, pool []model.City, minKm float64) (model.Selection, []model.Warning, error) {
	maxIter := r.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	log := zap.L().With(
		zap.String("component", "dispersion.repairer"),
		zap.Float64("min_distance_km", minKm),
	)

	idx := indexFromSelection(sel)

	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return idx.selection(), nil, eris.Wrap(err, "dispersion: repair cancelled")
		}

		v, ok := closestPair(idx.members)
		if !ok || v.dist >= minKm {
			if ok {
				log.Info("repair converged",
					zap.Int("iterations", iter-1),
					zap.Float64("closest_km", v.dist),
				)
			}
			return idx.selection(), nil, nil
		}

		a, b := idx.members[v.i], idx.members[v.j]
		log.Info("violating pair",
			zap.Int("iteration", iter),
			zap.String("city_a", a.Name),
			zap.String("city_b", b.Name),
			zap.Float64("distance_km", v.dist),
		)

		// Remove the less populous member; ties go to the lower ID.
		target := v.i
		if b.Population < a.Population || (b.Population == a.Population && b.ID < a.ID) {
			target = v.j
		}
		removed := idx.members[target]

		best, bestScore := bestReplacement(pool, idx, target)
		if best == nil || bestScore <= v.dist {
			msg := fmt.Sprintf("no replacement improves on pair %s/%s at %.1f km; keeping both",
				a.Name, b.Name, v.dist)
			log.Warn("repair stalled", zap.String("reason", msg))
			return idx.selection(), []model.Warning{{Kind: model.WarnUnresolvedViolation, Message: msg}}, nil
		}

		idx.replaceAt(target, *best)
		log.Info("replaced member",
			zap.String("removed", removed.Name),
			zap.Int64("removed_pop", removed.Population),
			zap.String("added", best.Name),
			zap.Float64("new_min_km", bestScore),
		)
	}

	// Budget exhausted with a violation still present.
	v, _ := closestPair(idx.members)
	msg := fmt.Sprintf("iteration budget (%d) exhausted with closest pair at %.1f km", maxIter, v.dist)
	log.Warn("repair stalled", zap.String("reason", msg))
	return idx.selection(), []model.Warning{{Kind: model.WarnUnresolvedViolation, Message: msg}}, nil
}

// closestPair scans all C(k,2) pairs and returns the globally closest one.
// Ties keep the first pair in position-enumeration order, which is fixed for
// a given selection.
func closestPair(members []model.City) (violation, bool) {
	v := violation{dist: math.Inf(1)}
	if len(members) < 2 {
		return v, false
	}
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			d := geodist.Haversine(members[i].Point(), members[j].Point())
			if d < v.dist {
				v = violation{i: i, j: j, dist: d}
			}
		}
	}
	return v, true
}

// bestReplacement searches pool for the unselected candidate with the
// largest minimum distance to every selection member except the one at
// position target. Ties resolve to the lower city ID.
func bestReplacement(pool []model.City, idx *selectionIndex, target int) (*model.City, float64) {
	var best *model.City
	bestScore := 0.0

	for p := range pool {
		cand := pool[p]
		if idx.contains(cand.ID) {
			continue
		}

		score := math.Inf(1)
		for m, member := range idx.members {
			if m == target {
				continue
			}
			if d := geodist.Haversine(cand.Point(), member.Point()); d < score {
				score = d
			}
		}

		if best == nil || score > bestScore || (score == bestScore && cand.ID < best.ID) {
			best = &pool[p]
			bestScore = score
		}
	}
	return best, bestScore
}
