// Package dispersion selects geographically dispersed city subsets: a
// greedy farthest-point pass builds the initial selection, then a local
// repair loop enforces a minimum pairwise separation.
//
// The approach follows the max-min dispersion heuristic described in
// https://arxiv.org/pdf/2103.16607.
package dispersion

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/geosample-cli/internal/model"
)

// Result holds the outcome of one selection pipeline invocation.
type Result struct {
	Cities    model.Selection `json:"cities"`
	Warnings  []model.Warning `json:"warnings,omitempty"`
	ClosestKm float64         `json:"closest_km"` // minimum pairwise distance in the final selection
}

// Pipeline wires the greedy selector and the repair loop. The zero value is
// usable: sequential scoring and the default repair budget.
type Pipeline struct {
	Selector Selector
	Repairer Repairer
}

// Run selects params.NCities dispersed cities from pool and repairs the
// result to the params.MinDistanceKm floor. The pool must contain only
// records with valid coordinates. Warnings report size reduction and
// unresolved violations; neither is an error.
func (p *Pipeline) Run(ctx context.Context, pool []model.City, params model.RunParams) (*Result, error) {
	sel, warnings, err := p.Selector.Select(ctx, pool, params.NCities)
	if err != nil {
		return nil, err
	}

	sel, repairWarnings, err := p.Repairer.Repair(ctx, sel, pool, params.MinDistanceKm)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, repairWarnings...)

	res := &Result{
		Cities:    sel,
		Warnings:  warnings,
		ClosestKm: MinPairDistance(sel),
	}

	zap.L().Info("selection pipeline finished",
		zap.Int("selected", len(sel)),
		zap.Float64("closest_km", res.ClosestKm),
		zap.Int("warnings", len(warnings)),
	)
	return res, nil
}

// MinPairDistance returns the smallest pairwise distance in sel, or zero for
// selections smaller than two (which cannot violate any separation floor).
func MinPairDistance(sel model.Selection) float64 {
	v, ok := closestPair(sel)
	if !ok {
		return 0
	}
	return v.dist
}
