// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/hkcm91/stickernest/pkg/models"
)

// CreateTestNode creates a pipeline node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.PipelineNode)) *models.PipelineNode {
	node := &models.PipelineNode{
		ID:          uuid.New().String(),
		Type:        models.NodeTypeWidget,
		WidgetDefID: "widget.test",
		PositionX:   100,
		PositionY:   200,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.PipelineNode) {
	return func(n *models.PipelineNode) {
		n.ID = id
	}
}

// WithWidgetDef sets the node's widget definition.
func WithWidgetDef(defID string) func(*models.PipelineNode) {
	return func(n *models.PipelineNode) {
		n.WidgetDefID = defID
	}
}

// WithInstance binds the node to a live widget instance.
func WithInstance(instanceID string) func(*models.PipelineNode) {
	return func(n *models.PipelineNode) {
		n.WidgetInstanceID = instanceID
	}
}

// WithPosition sets the node position.
func WithPosition(x, y int) func(*models.PipelineNode) {
	return func(n *models.PipelineNode) {
		n.PositionX = x
		n.PositionY = y
	}
}

// CreateTestPipeline creates an empty enabled pipeline on its own canvas.
func CreateTestPipeline() *models.Pipeline {
	return &models.Pipeline{
		ID:          uuid.New().String(),
		CanvasID:    "canvas-test",
		Name:        "Test Pipeline",
		Nodes:       []*models.PipelineNode{},
		Connections: []*models.Connection{},
		Enabled:     true,
	}
}

// CreateTestPipelineWithNodes creates a pipeline with a source and sink node
// wired together.
func CreateTestPipelineWithNodes() *models.Pipeline {
	pipeline := CreateTestPipeline()

	source := CreateTestNode(WithID("n-source"), WithWidgetDef("widget.source"))
	sink := CreateTestNode(WithID("n-sink"), WithWidgetDef("widget.sink"))

	pipeline.Nodes = []*models.PipelineNode{source, sink}
	pipeline.Connections = []*models.Connection{
		CreateTestConnection("n-source", "out", "n-sink", "in"),
	}

	return pipeline
}

// CreateTestConnection creates a connection between two node ports.
func CreateTestConnection(fromNode, fromPort, toNode, toPort string) *models.Connection {
	return &models.Connection{
		ID:   uuid.New().String(),
		From: models.PortRef{NodeID: fromNode, PortName: fromPort},
		To:   models.PortRef{NodeID: toNode, PortName: toPort},
	}
}

// CreateTestDefinition creates a widget definition with the given ports.
func CreateTestDefinition(id string, inputs, outputs []models.Port) *models.WidgetDefinition {
	return &models.WidgetDefinition{
		ID:      id,
		Name:    id,
		Inputs:  inputs,
		Outputs: outputs,
	}
}
