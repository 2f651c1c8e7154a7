// Package persistence provides the storage abstraction for pipelines.
package persistence

import (
	"context"

	"github.com/hkcm91/stickernest/pkg/models"
)

// PipelineRepository stores pipelines indexed by canvas scope.
//
// Create and Save must keep the pipeline record and the per-scope index
// consistent with each other: no reader may observe a pipeline registered
// in the index but not yet readable, or the reverse.
type PipelineRepository interface {
	// Create persists a new pipeline and registers it in its scope index.
	Create(ctx context.Context, pipeline *models.Pipeline) error
	// GetByID returns the pipeline or ErrPipelineNotFound.
	GetByID(ctx context.Context, id string) (*models.Pipeline, error)
	// Save overwrites an existing pipeline, moving it between scope
	// indexes if its canvas changed.
	Save(ctx context.Context, pipeline *models.Pipeline) error
	// Delete removes the pipeline and its index entry.
	Delete(ctx context.Context, id string) error
	// ListByScope returns pipelines whose canvas ID equals the argument
	// exactly. Unknown scopes yield an empty list, not an error. The
	// default-scope dual visibility rule lives in the service layer.
	ListByScope(ctx context.Context, canvasID string) ([]*models.Pipeline, error)
}

type Persistence interface {
	PipelineRepository() PipelineRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
