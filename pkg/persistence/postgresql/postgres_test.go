package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
	"github.com/hkcm91/stickernest/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"pipelines", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("stickernest_test"),
			postgres.WithUsername("stickernest"),
			postgres.WithPassword("stickernest"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx
}

func buildPipeline(id, canvasID string) *models.Pipeline {
	now := time.Now().UTC().Truncate(time.Millisecond)

	return &models.Pipeline{
		ID:       id,
		CanvasID: canvasID,
		Name:     "Pipeline " + id,
		Nodes: []*models.PipelineNode{
			{ID: "n1", Type: models.NodeTypeWidget, WidgetDefID: "widget.picker"},
			{ID: "n2", Type: models.NodeTypeWidget, WidgetDefID: "widget.lamp"},
		},
		Connections: []*models.Connection{
			{
				ID:   "c1",
				From: models.PortRef{NodeID: "n1", PortName: "color"},
				To:   models.PortRef{NodeID: "n2", PortName: "color"},
			},
		},
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPipelineRepository_RoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.PipelineRepository()

	require.NoError(t, repo.Create(ctx, buildPipeline("p1", "canvas-1")))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "canvas-1", got.CanvasID)
	assert.Len(t, got.Nodes, 2)
	require.Len(t, got.Connections, 1)
	assert.Equal(t, "n1:color", got.Connections[0].From.Key())
}

func TestPipelineRepository_CreateDuplicate(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.PipelineRepository()

	require.NoError(t, repo.Create(ctx, buildPipeline("p1", "canvas-1")))

	err := repo.Create(ctx, buildPipeline("p1", "canvas-2"))
	assert.ErrorIs(t, err, persistence.ErrPipelineAlreadyExists)
}

func TestPipelineRepository_SaveAndList(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.PipelineRepository()

	pipeline := buildPipeline("p1", "canvas-1")
	require.NoError(t, repo.Create(ctx, pipeline))
	require.NoError(t, repo.Create(ctx, buildPipeline("p2", models.ScopeDefault)))

	pipeline.Enabled = false
	pipeline.CanvasID = "canvas-2"
	pipeline.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Save(ctx, pipeline))

	old, err := repo.ListByScope(ctx, "canvas-1")
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := repo.ListByScope(ctx, "canvas-2")
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.False(t, moved[0].Enabled)

	shared, err := repo.ListByScope(ctx, models.ScopeDefault)
	require.NoError(t, err)
	assert.Len(t, shared, 1)
}

func TestPipelineRepository_Delete(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.PipelineRepository()

	require.NoError(t, repo.Create(ctx, buildPipeline("p1", "canvas-1")))
	require.NoError(t, repo.Delete(ctx, "p1"))

	_, err := repo.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, persistence.ErrPipelineNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "p1"), persistence.ErrPipelineNotFound)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}
