package dispersion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geosample-cli/internal/model"
)

func TestRepair_AlreadyConverged(t *testing.T) {
	sel := model.Selection{
		city(1, "A", 0, 0, 100),
		city(2, "B", 0, 10, 50), // ~1112 km
	}
	pool := append(model.Selection{}, sel...)

	var r Repairer
	got, warnings, err := r.Repair(context.Background(), sel, pool, 500)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, sel.IDs(), got.IDs())
}

func TestRepair_Idempotent(t *testing.T) {
	pool := []model.City{
		city(1, "A", 0, 0, 100),
		city(2, "B", 0, 1, 90),
		city(3, "X", 0, 10, 10),
	}
	sel := model.Selection{pool[0], pool[1]}

	var r Repairer
	first, _, err := r.Repair(context.Background(), sel, pool, 500)
	require.NoError(t, err)

	second, warnings, err := r.Repair(context.Background(), first, pool, 500)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestRepair_SwapsInFarCandidate(t *testing.T) {
	// A and B violate the 500 km floor; X is ~1112 km from A. B has the
	// smaller population, so it is the removal target.
	pool := []model.City{
		city(1, "A", 0, 0, 100),
		city(2, "B", 0, 1, 90),
		city(3, "X", 0, 10, 10),
	}
	sel := model.Selection{pool[0], pool[1]}

	var r Repairer
	got, warnings, err := r.Repair(context.Background(), sel, pool, 500)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 3}, got.IDs())
	assert.GreaterOrEqual(t, MinPairDistance(got), 500.0)
}

func TestRepair_RemovesLessPopulousMember(t *testing.T) {
	// Same geometry but A is the less populous member of the pair.
	pool := []model.City{
		city(1, "A", 0, 0, 40),
		city(2, "B", 0, 1, 90),
		city(3, "X", 0, 11, 10),
	}
	sel := model.Selection{pool[0], pool[1]}

	var r Repairer
	got, warnings, err := r.Repair(context.Background(), sel, pool, 500)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []int64{3, 2}, got.IDs())
}

func TestRepair_StalledKeepsViolation(t *testing.T) {
	// No unselected candidate improves on the violating pair.
	pool := []model.City{
		city(1, "A", 0, 0, 100),
		city(2, "B", 0, 1, 90),
		city(3, "C", 0, 0.5, 10), // between A and B, worse than both
	}
	sel := model.Selection{pool[0], pool[1]}

	var r Repairer
	got, warnings, err := r.Repair(context.Background(), sel, pool, 500)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnUnresolvedViolation, warnings[0].Kind)
	assert.Equal(t, sel.IDs(), got.IDs())
	assert.Less(t, MinPairDistance(got), 500.0)
}

func TestRepair_MonotoneImprovementThenStall(t *testing.T) {
	// X improves the B/Y violation without reaching the floor: the swap is
	// accepted (strict improvement), then the loop stalls on the new pair.
	pool := []model.City{
		city(1, "A", 0, 0, 100),
		city(2, "Y", 0, 10.2, 95),
		city(3, "B", 0, 12, 90),
		city(4, "X", 1.7, 12, 20),
	}
	sel := model.Selection{pool[0], pool[2], pool[1]} // {A, B, Y}

	before := MinPairDistance(sel)
	require.Less(t, before, 500.0)

	var r Repairer
	got, warnings, err := r.Repair(context.Background(), sel, pool, 500)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, model.WarnUnresolvedViolation, warnings[0].Kind)

	// Each accepted replacement strictly increases the previously minimal
	// pairwise distance.
	assert.Greater(t, MinPairDistance(got), before)
	// B was swapped out for X.
	assert.NotContains(t, got.IDs(), int64(3))
	assert.Contains(t, got.IDs(), int64(4))
	assert.Len(t, got, 3)
}

func TestRepair_SizeAndMembershipInvariants(t *testing.T) {
	pool := syntheticPool(80)

	var s Selector
	sel, _, err := s.Select(context.Background(), pool, 15)
	require.NoError(t, err)

	var r Repairer
	got, _, err := r.Repair(context.Background(), sel, pool, 3000)
	require.NoError(t, err)

	assert.Len(t, got, 15)
	inPool := make(map[int64]bool)
	for _, c := range pool {
		inPool[c.ID] = true
	}
	seen := make(map[int64]bool)
	for _, c := range got {
		assert.True(t, inPool[c.ID])
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}

func TestRepair_IterationBudget(t *testing.T) {
	pool := syntheticPool(200)

	var s Selector
	sel, _, err := s.Select(context.Background(), pool, 30)
	require.NoError(t, err)

	// An absurd floor forces the loop to its budget (or a stall) without
	// ever converging; either way the call must return, best-effort.
	r := Repairer{MaxIterations: 5}
	got, warnings, err := r.Repair(context.Background(), sel, pool, 50000)
	require.NoError(t, err)
	assert.Len(t, got, 30)
	require.NotEmpty(t, warnings)
	assert.Equal(t, model.WarnUnresolvedViolation, warnings[0].Kind)
}

func TestRepair_SingleMemberTriviallyConverged(t *testing.T) {
	sel := model.Selection{city(1, "A", 0, 0, 100)}

	var r Repairer
	got, warnings, err := r.Repair(context.Background(), sel, sel, 500)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, sel.IDs(), got.IDs())
}
