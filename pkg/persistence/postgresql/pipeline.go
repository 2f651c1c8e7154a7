package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
)

// PipelineRepository handles pipeline-related database operations. Nodes and
// connections are stored as JSONB columns on the pipeline row, so every
// mutation is a single statement and the record stays consistent with the
// canvas_id index for free.
type PipelineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(db *sql.DB, logger *slog.Logger) *PipelineRepository {
	return &PipelineRepository{db: db, logger: logger}
}

// Create inserts a new pipeline row.
func (r *PipelineRepository) Create(ctx context.Context, pipeline *models.Pipeline) error {
	nodesJSON, connectionsJSON, err := marshalGraph(pipeline)
	if err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	query := `
		INSERT INTO pipelines (id, canvas_id, name, nodes, connections, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		pipeline.ID,
		pipeline.CanvasID,
		pipeline.Name,
		nodesJSON,
		connectionsJSON,
		pipeline.Enabled,
		pipeline.CreatedAt,
		pipeline.UpdatedAt,
	)
	if err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	if rowsAffected == 0 {
		return persistence.NewPipelineError("Create", pipeline.ID, persistence.ErrPipelineAlreadyExists)
	}

	return nil
}

// GetByID returns a pipeline by its ID.
func (r *PipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	query := `
		SELECT
			id
		  , canvas_id
		  , name
		  , nodes
		  , connections
		  , enabled
		  , created_at
		  , updated_at
		FROM pipelines
		WHERE id = $1
	`

	pipeline, err := scanPipeline(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrPipelineNotFound
		}

		return nil, persistence.NewPipelineError("GetByID", id, err)
	}

	return pipeline, nil
}

// Save overwrites an existing pipeline row.
func (r *PipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	nodesJSON, connectionsJSON, err := marshalGraph(pipeline)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	query := `
		UPDATE pipelines SET
			canvas_id = $2,
			name = $3,
			nodes = $4,
			connections = $5,
			enabled = $6,
			updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		pipeline.ID,
		pipeline.CanvasID,
		pipeline.Name,
		nodesJSON,
		connectionsJSON,
		pipeline.Enabled,
		pipeline.UpdatedAt,
	)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	if rowsAffected == 0 {
		return persistence.NewPipelineError("Save", pipeline.ID, persistence.ErrPipelineNotFound)
	}

	return nil
}

// Delete removes a pipeline row.
func (r *PipelineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM pipelines WHERE id = $1", id)
	if err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	if rowsAffected == 0 {
		return persistence.NewPipelineError("Delete", id, persistence.ErrPipelineNotFound)
	}

	return nil
}

// ListByScope returns pipelines whose canvas_id equals the argument exactly.
func (r *PipelineRepository) ListByScope(ctx context.Context, canvasID string) ([]*models.Pipeline, error) {
	query := `
		SELECT
			id
		  , canvas_id
		  , name
		  , nodes
		  , connections
		  , enabled
		  , created_at
		  , updated_at
		FROM pipelines
		WHERE canvas_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, canvasID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	pipelines := make([]*models.Pipeline, 0)

	for rows.Next() {
		pipeline, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}

		pipelines = append(pipelines, pipeline)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating pipelines: %w", err)
	}

	return pipelines, nil
}

func marshalGraph(pipeline *models.Pipeline) (nodesJSON, connectionsJSON []byte, err error) {
	nodesJSON, err = json.Marshal(pipeline.Nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}

	connectionsJSON, err = json.Marshal(pipeline.Connections)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal connections: %w", err)
	}

	return nodesJSON, connectionsJSON, nil
}

func scanPipeline(scanner interface {
	Scan(dest ...any) error
}) (*models.Pipeline, error) {
	var (
		pipeline                   models.Pipeline
		nodesJSON, connectionsJSON []byte
	)

	err := scanner.Scan(
		&pipeline.ID,
		&pipeline.CanvasID,
		&pipeline.Name,
		&nodesJSON,
		&connectionsJSON,
		&pipeline.Enabled,
		&pipeline.CreatedAt,
		&pipeline.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &pipeline.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(connectionsJSON, &pipeline.Connections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}

	return &pipeline, nil
}
