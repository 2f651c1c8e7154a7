// Package redis provides Redis-based persistence for pipelines.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

const keyPrefix = "stickernest:"

// Persistence implements the persistence.Persistence interface using Redis.
// Pipelines live at stickernest:pipelines:<id> and each canvas scope keeps a
// set of its pipeline IDs at stickernest:scopes:<canvasID>.
type Persistence struct {
	client       *backend.Client
	pipelineRepo *PipelineRepository
}

// NewPersistence creates a new instance from a redis:// connection URL.
func NewPersistence(url string) (*Persistence, error) {
	opts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return NewFromClient(backend.NewClient(opts)), nil
}

// NewFromClient creates a new instance from an existing client. Used by
// tests that run against miniredis.
func NewFromClient(client *backend.Client) *Persistence {
	return &Persistence{
		client:       client,
		pipelineRepo: NewPipelineRepository(client),
	}
}

func (rp *Persistence) PipelineRepository() persistence.PipelineRepository {
	return rp.pipelineRepo
}

// HealthCheck pings the server.
func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}

// PipelineRepository implements persistence.PipelineRepository on Redis.
type PipelineRepository struct {
	client *backend.Client
}

func NewPipelineRepository(client *backend.Client) *PipelineRepository {
	return &PipelineRepository{client: client}
}

func pipelineKey(id string) string {
	return keyPrefix + "pipelines:" + id
}

func scopeKey(canvasID string) string {
	return keyPrefix + "scopes:" + canvasID
}

// Create persists a new pipeline and registers it in its scope set. The
// record is claimed with SETNX so concurrent creates cannot both win.
func (r *PipelineRepository) Create(ctx context.Context, pipeline *models.Pipeline) error {
	data, err := json.Marshal(pipeline)
	if err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	created, err := r.client.SetNX(ctx, pipelineKey(pipeline.ID), data, 0).Result()
	if err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	if !created {
		return persistence.NewPipelineError("Create", pipeline.ID, persistence.ErrPipelineAlreadyExists)
	}

	if err := r.client.SAdd(ctx, scopeKey(pipeline.CanvasID), pipeline.ID).Err(); err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	return nil
}

// GetByID loads a pipeline by ID.
func (r *PipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	val, err := r.client.Get(ctx, pipelineKey(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, persistence.ErrPipelineNotFound
		}

		return nil, persistence.NewPipelineError("GetByID", id, err)
	}

	var pipeline models.Pipeline
	if err := json.Unmarshal([]byte(val), &pipeline); err != nil {
		return nil, persistence.NewPipelineError("GetByID", id, err)
	}

	return &pipeline, nil
}

// Save overwrites an existing pipeline. Record and scope-set changes go
// through a single transactional pipeline so they land together.
func (r *PipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	existing, err := r.GetByID(ctx, pipeline.ID)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	data, err := json.Marshal(pipeline)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, pipelineKey(pipeline.ID), data, 0)

	if existing.CanvasID != pipeline.CanvasID {
		pipe.SRem(ctx, scopeKey(existing.CanvasID), pipeline.ID)
		pipe.SAdd(ctx, scopeKey(pipeline.CanvasID), pipeline.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	return nil
}

// Delete removes a pipeline and its scope-set entry.
func (r *PipelineRepository) Delete(ctx context.Context, id string) error {
	pipeline, err := r.GetByID(ctx, id)
	if err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, pipelineKey(id))
	pipe.SRem(ctx, scopeKey(pipeline.CanvasID), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	return nil
}

// ListByScope returns pipelines registered under the exact scope, sorted by
// creation time for stable listings.
func (r *PipelineRepository) ListByScope(ctx context.Context, canvasID string) ([]*models.Pipeline, error) {
	ids, err := r.client.SMembers(ctx, scopeKey(canvasID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scope %s: %w", canvasID, err)
	}

	pipelines := make([]*models.Pipeline, 0, len(ids))

	for _, id := range ids {
		pipeline, err := r.GetByID(ctx, id)
		if err != nil {
			// A dangling set member means the record was deleted out
			// of band. Skip it rather than failing the whole listing.
			if persistence.IsPipelineNotFound(err) {
				continue
			}

			return nil, err
		}

		pipelines = append(pipelines, pipeline)
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedAt.Before(pipelines[j].CreatedAt)
	})

	return pipelines, nil
}
