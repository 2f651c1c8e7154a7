// Package file provides file-based persistence for pipelines.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/hkcm91/stickernest/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system. It is the default backend for development and tests.
type Persistence struct {
	root         string
	pipelineRepo *PipelineRepository
}

// NewPersistence creates a new instance rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		pipelineRepo: NewPipelineRepository(cleanRoot),
	}
}

// PipelineRepository returns the pipeline repository implementation.
func (fp *Persistence) PipelineRepository() persistence.PipelineRepository {
	return fp.pipelineRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
