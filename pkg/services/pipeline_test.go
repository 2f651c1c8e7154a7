package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
	"github.com/hkcm91/stickernest/pkg/persistence/file"
	"github.com/hkcm91/stickernest/pkg/registry"
	"github.com/hkcm91/stickernest/pkg/services"
)

func setupService(t *testing.T) *services.Pipeline {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.NewRegistry(logger)

	require.NoError(t, reg.Register(&models.WidgetDefinition{
		ID:      "widget.picker",
		Name:    "Color Picker",
		Outputs: []models.Port{{Name: "color", Type: models.PortTypeString}},
	}))
	require.NoError(t, reg.Register(&models.WidgetDefinition{
		ID:     "widget.lamp",
		Name:   "Lamp",
		Inputs: []models.Port{{Name: "color", Type: models.PortTypeString}, {Name: "brightness", Type: models.PortTypeNumber}},
	}))
	require.NoError(t, reg.Register(&models.WidgetDefinition{
		ID:      "widget.counter",
		Name:    "Counter",
		Inputs:  []models.Port{{Name: "increment", Type: models.PortTypeAny}},
		Outputs: []models.Port{{Name: "count", Type: models.PortTypeNumber}},
	}))

	return services.NewPipeline(file.NewPersistence(t.TempDir()), reg, nil)
}

func createPipeline(t *testing.T, service *services.Pipeline, canvasID string) *models.Pipeline {
	t.Helper()

	pipeline, err := service.Create(context.Background(), &models.Pipeline{
		CanvasID: canvasID,
		Name:     "Test Pipeline",
		Nodes: []*models.PipelineNode{
			{ID: "n-picker", Type: models.NodeTypeWidget, WidgetDefID: "widget.picker"},
			{ID: "n-lamp", Type: models.NodeTypeWidget, WidgetDefID: "widget.lamp"},
			{ID: "n-counter", Type: models.NodeTypeWidget, WidgetDefID: "widget.counter"},
		},
		Enabled: true,
	})
	require.NoError(t, err)

	return pipeline
}

func TestPipeline_Create(t *testing.T) {
	service := setupService(t)

	pipeline := createPipeline(t, service, "canvas-1")

	assert.NotEmpty(t, pipeline.ID)
	assert.False(t, pipeline.CreatedAt.IsZero())

	fetched, err := service.FetchByID(context.Background(), pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Pipeline", fetched.Name)
}

func TestPipeline_CreateValidation(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, nil)
	assert.ErrorIs(t, err, services.ErrPipelineNil)

	_, err = service.Create(ctx, &models.Pipeline{CanvasID: "canvas-1"})
	assert.True(t, services.IsValidationError(err))
}

func TestPipeline_CreateDefaultsScope(t *testing.T) {
	service := setupService(t)

	pipeline, err := service.Create(context.Background(), &models.Pipeline{Name: "Unscoped"})
	require.NoError(t, err)
	assert.Equal(t, models.ScopeDefault, pipeline.CanvasID)
}

func TestPipeline_CreateRejectsIncompatibleConnections(t *testing.T) {
	service := setupService(t)

	_, err := service.Create(context.Background(), &models.Pipeline{
		CanvasID: "canvas-1",
		Name:     "Bad Pipeline",
		Nodes: []*models.PipelineNode{
			{ID: "n-picker", Type: models.NodeTypeWidget, WidgetDefID: "widget.picker"},
			{ID: "n-lamp", Type: models.NodeTypeWidget, WidgetDefID: "widget.lamp"},
		},
		Connections: []*models.Connection{
			{
				From: models.PortRef{NodeID: "n-picker", PortName: "color"},
				To:   models.PortRef{NodeID: "n-lamp", PortName: "brightness"},
			},
		},
	})
	assert.ErrorIs(t, err, services.ErrPortIncompatible)
}

func TestPipeline_ListForScope(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	createPipeline(t, service, "canvas-1")
	createPipeline(t, service, models.ScopeDefault)

	// A default-scope pipeline is visible from any canvas.
	visible, err := service.ListForScope(ctx, "canvas-1")
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	other, err := service.ListForScope(ctx, "canvas-42")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	shared, err := service.ListForScope(ctx, models.ScopeDefault)
	require.NoError(t, err)
	assert.Len(t, shared, 1)
}

func TestPipeline_AddConnection(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")

	connection, err := service.AddConnection(ctx, pipeline.ID, &models.Connection{
		From: models.PortRef{NodeID: "n-picker", PortName: "color"},
		To:   models.PortRef{NodeID: "n-lamp", PortName: "color"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, connection.ID)

	fetched, err := service.FetchByID(ctx, pipeline.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Connections, 1)
}

func TestPipeline_AddConnectionValidation(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")

	testCases := []struct {
		name       string
		connection *models.Connection
		wantErr    error
	}{
		{
			name: "incompatible port types",
			connection: &models.Connection{
				From: models.PortRef{NodeID: "n-picker", PortName: "color"},
				To:   models.PortRef{NodeID: "n-lamp", PortName: "brightness"},
			},
			wantErr: services.ErrPortIncompatible,
		},
		{
			name: "undeclared output port",
			connection: &models.Connection{
				From: models.PortRef{NodeID: "n-picker", PortName: "nope"},
				To:   models.PortRef{NodeID: "n-lamp", PortName: "color"},
			},
			wantErr: services.ErrUnknownPort,
		},
		{
			name: "undeclared input port",
			connection: &models.Connection{
				From: models.PortRef{NodeID: "n-picker", PortName: "color"},
				To:   models.PortRef{NodeID: "n-lamp", PortName: "nope"},
			},
			wantErr: services.ErrUnknownPort,
		},
		{
			name: "unknown source node",
			connection: &models.Connection{
				From: models.PortRef{NodeID: "n-ghost", PortName: "color"},
				To:   models.PortRef{NodeID: "n-lamp", PortName: "color"},
			},
			wantErr: persistence.ErrNodeNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.AddConnection(ctx, pipeline.ID, tc.connection)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPipeline_AddConnectionWildcard(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")

	// A string output feeds an "any" input.
	_, err := service.AddConnection(ctx, pipeline.ID, &models.Connection{
		From: models.PortRef{NodeID: "n-picker", PortName: "color"},
		To:   models.PortRef{NodeID: "n-counter", PortName: "increment"},
	})
	assert.NoError(t, err)
}

func TestPipeline_AddConnectionDuplicate(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")

	edge := models.Connection{
		From: models.PortRef{NodeID: "n-picker", PortName: "color"},
		To:   models.PortRef{NodeID: "n-lamp", PortName: "color"},
	}

	first := edge
	_, err := service.AddConnection(ctx, pipeline.ID, &first)
	require.NoError(t, err)

	second := edge
	_, err = service.AddConnection(ctx, pipeline.ID, &second)
	assert.ErrorIs(t, err, services.ErrConnectionExists)
	assert.True(t, services.IsConflictError(err))
}

func TestPipeline_RemoveConnection(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")

	connection, err := service.AddConnection(ctx, pipeline.ID, &models.Connection{
		From: models.PortRef{NodeID: "n-picker", PortName: "color"},
		To:   models.PortRef{NodeID: "n-lamp", PortName: "color"},
	})
	require.NoError(t, err)

	require.NoError(t, service.RemoveConnection(ctx, pipeline.ID, connection.ID))

	fetched, err := service.FetchByID(ctx, pipeline.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Connections)

	err = service.RemoveConnection(ctx, pipeline.ID, connection.ID)
	assert.ErrorIs(t, err, services.ErrConnectionNotFound)
}

func TestPipeline_SetEnabled(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")
	require.True(t, pipeline.Enabled)

	disabled, err := service.SetEnabled(ctx, pipeline.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)

	// The graph survives the disable.
	fetched, err := service.FetchByID(ctx, pipeline.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Nodes, 3)

	enabled, err := service.SetEnabled(ctx, pipeline.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
}

func TestPipeline_AddWidgetsIsIdempotent(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline, err := service.Create(ctx, &models.Pipeline{
		CanvasID: "canvas-1",
		Name:     "Preset Target",
	})
	require.NoError(t, err)

	preset := []string{"widget.picker", "widget.lamp"}

	first, err := service.AddWidgets(ctx, pipeline.ID, preset)
	require.NoError(t, err)
	assert.Len(t, first.Added, 2)
	assert.Empty(t, first.Skipped)

	// Applying the same preset again adds nothing.
	second, err := service.AddWidgets(ctx, pipeline.ID, preset)
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Equal(t, preset, second.Skipped)

	fetched, err := service.FetchByID(ctx, pipeline.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Nodes, 2)
}

func TestPipeline_AddWidgetsDedupsAcrossScope(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	// A default-scope pipeline already holds a picker.
	shared, err := service.Create(ctx, &models.Pipeline{
		CanvasID: models.ScopeDefault,
		Name:     "Shared",
		Nodes: []*models.PipelineNode{
			{ID: "n-shared", Type: models.NodeTypeWidget, WidgetDefID: "widget.picker"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, shared)

	target, err := service.Create(ctx, &models.Pipeline{
		CanvasID: "canvas-1",
		Name:     "Target",
	})
	require.NoError(t, err)

	result, err := service.AddWidgets(ctx, target.ID, []string{"widget.picker", "widget.lamp"})
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
	assert.Equal(t, []string{"widget.picker"}, result.Skipped)
}

func TestPipeline_AddWidgetsUnknownDefinition(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	pipeline := createPipeline(t, service, "canvas-1")

	_, err := service.AddWidgets(ctx, pipeline.ID, []string{"widget.ghost"})
	assert.ErrorIs(t, err, services.ErrUnknownWidgetDef)
}

func TestPipeline_HealthCheck(t *testing.T) {
	service := setupService(t)

	message, healthy := service.HealthCheck(context.Background())
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
