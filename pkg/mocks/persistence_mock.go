package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
)

// MockPipelineRepository is a mock implementation of
// persistence.PipelineRepository interface.
type MockPipelineRepository struct {
	mock.Mock
}

func (m *MockPipelineRepository) Create(ctx context.Context, pipeline *models.Pipeline) error {
	args := m.Called(ctx, pipeline)

	return args.Error(0)
}

func (m *MockPipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Pipeline), args.Error(1)
}

func (m *MockPipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	args := m.Called(ctx, pipeline)

	return args.Error(0)
}

func (m *MockPipelineRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPipelineRepository) ListByScope(ctx context.Context, canvasID string) ([]*models.Pipeline, error) {
	args := m.Called(ctx, canvasID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Pipeline), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence
// interface.
type MockPersistence struct {
	mock.Mock

	pipelineRepo *MockPipelineRepository
}

// NewMockPersistence creates a new MockPersistence with a mock repository.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		pipelineRepo: &MockPipelineRepository{},
	}
}

// GetMockPipelineRepository returns the underlying mock repository for
// setting up expectations.
func (m *MockPersistence) GetMockPipelineRepository() *MockPipelineRepository {
	return m.pipelineRepo
}

func (m *MockPersistence) PipelineRepository() persistence.PipelineRepository {
	return m.pipelineRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
