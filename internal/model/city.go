// Package model defines the catalog records and selection artifacts shared
// across the sampling pipeline.
package model

import (
	"time"

	"github.com/sells-group/geosample-cli/internal/geodist"
)

// City is a single candidate record from the catalog. Records are immutable
// once loaded; the selection pipeline only reads them.
type City struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Population int64   `json:"population"`
}

// Point returns the city's coordinate for distance computations.
func (c City) Point() geodist.Point {
	return geodist.Point{Lat: c.Lat, Lng: c.Lng}
}

// Selection is an ordered set of cities produced by the dispersion pipeline.
// IDs are distinct and drawn from the input pool; the size is fixed once the
// greedy pass completes.
type Selection []City

// IDs returns the selection's city IDs in order.
func (s Selection) IDs() []int64 {
	ids := make([]int64, len(s))
	for i, c := range s {
		ids[i] = c.ID
	}
	return ids
}

// WarningKind classifies non-fatal degradations of a selection run.
type WarningKind string

const (
	// WarnInsufficientCandidates: fewer valid candidates than requested;
	// the target size was reduced.
	WarnInsufficientCandidates WarningKind = "insufficient_candidates"
	// WarnUnresolvedViolation: the repair loop stalled with a pair still
	// under the separation floor.
	WarnUnresolvedViolation WarningKind = "unresolved_violation"
)

// Warning is a non-fatal notice surfaced alongside a best-effort selection.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// RunStatus represents the state of a persisted selection run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusDegraded RunStatus = "degraded" // finished with warnings
	RunStatusFailed   RunStatus = "failed"
)

// RunParams captures the configuration of one selection invocation.
type RunParams struct {
	NCities       int     `json:"n_cities" yaml:"n_cities"`
	MinDistanceKm float64 `json:"min_distance_km" yaml:"min_distance_km"`
	PopulationMin int64   `json:"population_min" yaml:"population_min"`
	Catalog       string  `json:"catalog,omitempty" yaml:"catalog,omitempty"`
}

// SelectionRun is the persisted record of one pipeline invocation.
type SelectionRun struct {
	ID        string    `json:"id"`
	Params    RunParams `json:"params"`
	Cities    Selection `json:"cities"`
	Warnings  []Warning `json:"warnings,omitempty"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
