package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hkcm91/stickernest/pkg/eventbus"
	"github.com/hkcm91/stickernest/pkg/events"
	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/persistence"
	"github.com/hkcm91/stickernest/pkg/registry"
)

var (
	// ErrPipelineNotFound is returned when a pipeline is not found.
	ErrPipelineNotFound = persistence.ErrPipelineNotFound

	// ErrConnectionNotFound is returned when a connection is not found.
	ErrConnectionNotFound = persistence.ErrConnectionNotFound
)

// Pipeline is the pipeline graph service. It validates connection edits
// against the port schema registry before anything is persisted and
// publishes lifecycle events for live routers.
type Pipeline struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
}

// NewPipeline creates a new pipeline service. The publisher may be nil when
// no live routers need notifications (e.g. offline tooling).
func NewPipeline(persistence persistence.Persistence, registry *registry.Registry, publisher eventbus.EventPublisher) *Pipeline {
	return &Pipeline{
		persistence: persistence,
		registry:    registry,
		publisher:   publisher,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Pipeline) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create adds a new pipeline. IDs and timestamps are assigned here; any
// connections already present must pass compatibility validation.
func (s *Pipeline) Create(ctx context.Context, pipeline *models.Pipeline) (*models.Pipeline, error) {
	if pipeline == nil {
		return nil, ErrPipelineNil
	}

	if pipeline.CanvasID == "" {
		pipeline.CanvasID = models.ScopeDefault
	}

	if err := s.validator.Struct(pipeline); err != nil {
		return nil, NewValidationError("Create", "INVALID_PIPELINE", err.Error(), ErrInvalidRequest)
	}

	for _, connection := range pipeline.Connections {
		if err := s.validateConnection(pipeline, connection); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	pipeline.ID = uuid.New().String()
	pipeline.CreatedAt = now
	pipeline.UpdatedAt = now

	err := s.persistence.PipelineRepository().Create(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return pipeline, nil
}

// FetchByID retrieves a pipeline by its ID.
func (s *Pipeline) FetchByID(ctx context.Context, id string) (*models.Pipeline, error) {
	return s.persistence.PipelineRepository().GetByID(ctx, id)
}

// ListForScope returns the pipelines visible from the given canvas: those
// scoped to it exactly plus every default-scope pipeline.
func (s *Pipeline) ListForScope(ctx context.Context, canvasID string) ([]*models.Pipeline, error) {
	repo := s.persistence.PipelineRepository()

	pipelines, err := repo.ListByScope(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines for scope %s: %w", canvasID, err)
	}

	if canvasID == models.ScopeDefault {
		return pipelines, nil
	}

	shared, err := repo.ListByScope(ctx, models.ScopeDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to list default-scope pipelines: %w", err)
	}

	return append(pipelines, shared...), nil
}

// Delete removes a pipeline by its ID.
func (s *Pipeline) Delete(ctx context.Context, id string) error {
	return s.persistence.PipelineRepository().Delete(ctx, id)
}

// AddConnection validates and appends a connection to a pipeline. The edge
// must reference existing nodes, a declared output port on the source, a
// declared input port on the target, and the port types must be compatible.
func (s *Pipeline) AddConnection(ctx context.Context, pipelineID string, connection *models.Connection) (*models.Connection, error) {
	pipeline, err := s.persistence.PipelineRepository().GetByID(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	if err := s.validateConnection(pipeline, connection); err != nil {
		return nil, err
	}

	for _, existing := range pipeline.Connections {
		if existing.From == connection.From && existing.To == connection.To {
			return nil, NewValidationError("AddConnection", "CONNECTION_EXISTS",
				fmt.Sprintf("connection %s -> %s already exists", connection.From.Key(), connection.To.Key()),
				ErrConnectionExists)
		}
	}

	if connection.ID == "" {
		connection.ID = uuid.New().String()
	}

	pipeline.Connections = append(pipeline.Connections, connection)
	pipeline.UpdatedAt = time.Now().UTC()

	if err := s.persistence.PipelineRepository().Save(ctx, pipeline); err != nil {
		return nil, fmt.Errorf("failed to save pipeline: %w", err)
	}

	return connection, nil
}

// RemoveConnection deletes a connection from a pipeline by connection ID.
func (s *Pipeline) RemoveConnection(ctx context.Context, pipelineID, connectionID string) error {
	pipeline, err := s.persistence.PipelineRepository().GetByID(ctx, pipelineID)
	if err != nil {
		return err
	}

	if _, found := pipeline.Connection(connectionID); !found {
		return persistence.NewPipelineError("RemoveConnection", pipelineID, ErrConnectionNotFound)
	}

	filtered := pipeline.Connections[:0]

	for _, connection := range pipeline.Connections {
		if connection.ID != connectionID {
			filtered = append(filtered, connection)
		}
	}

	pipeline.Connections = filtered
	pipeline.UpdatedAt = time.Now().UTC()

	if err := s.persistence.PipelineRepository().Save(ctx, pipeline); err != nil {
		return fmt.Errorf("failed to save pipeline: %w", err)
	}

	return nil
}

// SetEnabled flips routing for a pipeline without touching its graph. Live
// routers pick the change up through the published event.
func (s *Pipeline) SetEnabled(ctx context.Context, pipelineID string, enabled bool) (*models.Pipeline, error) {
	pipeline, err := s.persistence.PipelineRepository().GetByID(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	if pipeline.Enabled == enabled {
		return pipeline, nil
	}

	pipeline.Enabled = enabled
	pipeline.UpdatedAt = time.Now().UTC()

	if err := s.persistence.PipelineRepository().Save(ctx, pipeline); err != nil {
		return nil, fmt.Errorf("failed to save pipeline: %w", err)
	}

	s.publishEnabledChange(ctx, pipeline)

	return pipeline, nil
}

// AddWidgetsResult reports what a preset application actually did.
type AddWidgetsResult struct {
	Added   []*models.PipelineNode `json:"added"`
	Skipped []string               `json:"skipped"` // widget definition IDs already present in scope
}

// AddWidgets adds widget nodes for the given definition IDs to a pipeline.
// A definition already instantiated anywhere in the pipeline's visible scope
// is skipped, so applying the same preset twice is idempotent.
func (s *Pipeline) AddWidgets(ctx context.Context, pipelineID string, widgetDefIDs []string) (*AddWidgetsResult, error) {
	pipeline, err := s.persistence.PipelineRepository().GetByID(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	visible, err := s.ListForScope(ctx, pipeline.CanvasID)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool)

	for _, p := range visible {
		for _, node := range p.Nodes {
			present[node.WidgetDefID] = true
		}
	}

	result := &AddWidgetsResult{}

	for _, defID := range widgetDefIDs {
		if _, err := s.registry.Get(defID); err != nil {
			return nil, NewValidationError("AddWidgets", "UNKNOWN_WIDGET_DEF",
				fmt.Sprintf("widget definition %q is not registered", defID), ErrUnknownWidgetDef)
		}

		if present[defID] {
			result.Skipped = append(result.Skipped, defID)

			continue
		}

		node := &models.PipelineNode{
			ID:          uuid.New().String(),
			Type:        models.NodeTypeWidget,
			WidgetDefID: defID,
		}

		pipeline.Nodes = append(pipeline.Nodes, node)
		present[defID] = true
		result.Added = append(result.Added, node)
	}

	if len(result.Added) > 0 {
		pipeline.UpdatedAt = time.Now().UTC()

		if err := s.persistence.PipelineRepository().Save(ctx, pipeline); err != nil {
			return nil, fmt.Errorf("failed to save pipeline: %w", err)
		}
	}

	return result, nil
}

func (s *Pipeline) validateConnection(pipeline *models.Pipeline, connection *models.Connection) error {
	if connection == nil {
		return NewValidationError("validateConnection", "INVALID_CONNECTION", "connection cannot be nil", ErrInvalidRequest)
	}

	fromNode, found := pipeline.Node(connection.From.NodeID)
	if !found {
		return persistence.NewPipelineError("validateConnection", pipeline.ID, persistence.ErrNodeNotFound)
	}

	toNode, found := pipeline.Node(connection.To.NodeID)
	if !found {
		return persistence.NewPipelineError("validateConnection", pipeline.ID, persistence.ErrNodeNotFound)
	}

	fromDef, err := s.registry.Get(fromNode.WidgetDefID)
	if err != nil {
		return NewValidationError("validateConnection", "UNKNOWN_WIDGET_DEF", err.Error(), ErrUnknownWidgetDef)
	}

	toDef, err := s.registry.Get(toNode.WidgetDefID)
	if err != nil {
		return NewValidationError("validateConnection", "UNKNOWN_WIDGET_DEF", err.Error(), ErrUnknownWidgetDef)
	}

	outputPort, found := fromDef.OutputPort(connection.From.PortName)
	if !found {
		return NewValidationError("validateConnection", "UNKNOWN_PORT",
			fmt.Sprintf("output port %q is not declared on %q", connection.From.PortName, fromDef.ID),
			ErrUnknownPort)
	}

	inputPort, found := toDef.InputPort(connection.To.PortName)
	if !found {
		return NewValidationError("validateConnection", "UNKNOWN_PORT",
			fmt.Sprintf("input port %q is not declared on %q", connection.To.PortName, toDef.ID),
			ErrUnknownPort)
	}

	if !s.registry.AreCompatible(outputPort, inputPort) {
		return NewValidationError("validateConnection", "PORT_INCOMPATIBLE",
			fmt.Sprintf("output %q (%s) cannot feed input %q (%s)",
				outputPort.Name, outputPort.Type, inputPort.Name, inputPort.Type),
			ErrPortIncompatible)
	}

	return nil
}

func (s *Pipeline) publishEnabledChange(ctx context.Context, pipeline *models.Pipeline) {
	if s.publisher == nil {
		return
	}

	var event eventbus.Event
	if pipeline.Enabled {
		event = events.PipelineEnabled{
			BaseEvent:  events.NewBaseEvent(events.PipelineEnabledEvent, pipeline.CanvasID),
			PipelineID: pipeline.ID,
		}
	} else {
		event = events.PipelineDisabled{
			BaseEvent:  events.NewBaseEvent(events.PipelineDisabledEvent, pipeline.CanvasID),
			PipelineID: pipeline.ID,
		}
	}

	// Best effort: a dead bus must not fail the mutation that already
	// persisted.
	_ = s.publisher.Publish(ctx, pipeline.ID, event)
}
