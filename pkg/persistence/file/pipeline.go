package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
)

// PipelineRepository stores each pipeline as pipelines/<id>.json plus a
// scope index at index.json. A single mutex serializes mutations so the
// record and its index entry always change together.
type PipelineRepository struct {
	root string

	mu sync.Mutex
}

// scopeIndex maps canvas scope -> pipeline IDs.
type scopeIndex map[string][]string

func NewPipelineRepository(root string) *PipelineRepository {
	return &PipelineRepository{root: root}
}

func (r *PipelineRepository) pipelinesDir() string {
	return filepath.Join(r.root, "pipelines")
}

func (r *PipelineRepository) pipelinePath(id string) string {
	return filepath.Join(r.pipelinesDir(), id+".json")
}

func (r *PipelineRepository) indexPath() string {
	return filepath.Join(r.root, "index.json")
}

// Create persists a new pipeline and registers it in its scope index.
func (r *PipelineRepository) Create(_ context.Context, pipeline *models.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.pipelinePath(pipeline.ID)); err == nil {
		return persistence.NewPipelineError("Create", pipeline.ID, persistence.ErrPipelineAlreadyExists)
	}

	if err := r.writePipeline(pipeline); err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	index, err := r.readIndex()
	if err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	index[pipeline.CanvasID] = append(index[pipeline.CanvasID], pipeline.ID)

	if err := r.writeIndex(index); err != nil {
		return persistence.NewPipelineError("Create", pipeline.ID, err)
	}

	return nil
}

// GetByID loads a pipeline by ID.
func (r *PipelineRepository) GetByID(_ context.Context, id string) (*models.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readPipeline(id)
}

// Save overwrites an existing pipeline, moving its index entry if the
// canvas scope changed.
func (r *PipelineRepository) Save(_ context.Context, pipeline *models.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readPipeline(pipeline.ID)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	if err := r.writePipeline(pipeline); err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	if existing.CanvasID != pipeline.CanvasID {
		index, err := r.readIndex()
		if err != nil {
			return persistence.NewPipelineError("Save", pipeline.ID, err)
		}

		index[existing.CanvasID] = removeID(index[existing.CanvasID], pipeline.ID)
		index[pipeline.CanvasID] = append(index[pipeline.CanvasID], pipeline.ID)

		if err := r.writeIndex(index); err != nil {
			return persistence.NewPipelineError("Save", pipeline.ID, err)
		}
	}

	return nil
}

// Delete removes a pipeline and its index entry.
func (r *PipelineRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pipeline, err := r.readPipeline(id)
	if err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	if err := os.Remove(r.pipelinePath(id)); err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	index, err := r.readIndex()
	if err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	index[pipeline.CanvasID] = removeID(index[pipeline.CanvasID], id)

	if err := r.writeIndex(index); err != nil {
		return persistence.NewPipelineError("Delete", id, err)
	}

	return nil
}

// ListByScope returns pipelines registered under the exact scope, sorted
// by creation time for stable listings.
func (r *PipelineRepository) ListByScope(_ context.Context, canvasID string) ([]*models.Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, err := r.readIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline index: %w", err)
	}

	ids := index[canvasID]
	pipelines := make([]*models.Pipeline, 0, len(ids))

	for _, id := range ids {
		pipeline, err := r.readPipeline(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load pipeline %s: %w", id, err)
		}

		pipelines = append(pipelines, pipeline)
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedAt.Before(pipelines[j].CreatedAt)
	})

	return pipelines, nil
}

func (r *PipelineRepository) readPipeline(id string) (*models.Pipeline, error) {
	data, err := os.ReadFile(r.pipelinePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrPipelineNotFound
		}

		return nil, err
	}

	var pipeline models.Pipeline
	if err := json.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline %s: %w", id, err)
	}

	return &pipeline, nil
}

// writePipeline writes via a temp file and rename so readers never observe
// a partial record.
func (r *PipelineRepository) writePipeline(pipeline *models.Pipeline) error {
	if err := os.MkdirAll(r.pipelinesDir(), 0o750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(pipeline, "", "  ")
	if err != nil {
		return err
	}

	return atomicWrite(r.pipelinePath(pipeline.ID), data)
}

func (r *PipelineRepository) readIndex() (scopeIndex, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(scopeIndex), nil
		}

		return nil, err
	}

	var index scopeIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline index: %w", err)
	}

	return index, nil
}

func (r *PipelineRepository) writeIndex(index scopeIndex) error {
	if err := os.MkdirAll(r.root, 0o750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}

	return atomicWrite(r.indexPath(), data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func removeID(ids []string, id string) []string {
	filtered := ids[:0]

	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}

	return filtered
}
