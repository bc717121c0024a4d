// Package store persists selection runs.
package store

import (
	"context"
	"time"

	"github.com/sells-group/geosample-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for selection runs.
type Store interface {
	CreateRun(ctx context.Context, params model.RunParams, cities model.Selection, warnings []model.Warning) (*model.SelectionRun, error)
	GetRun(ctx context.Context, runID string) (*model.SelectionRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.SelectionRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// statusFor derives the persisted status from the run's warnings.
func statusFor(warnings []model.Warning) model.RunStatus {
	if len(warnings) > 0 {
		return model.RunStatusDegraded
	}
	return model.RunStatusComplete
}
