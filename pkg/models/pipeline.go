// Package models defines the core domain models for widget pipelines.
package models

import "time"

// ScopeDefault is the distinguished canvas scope. Pipelines created under it
// are visible from every canvas, not just the one they were authored in.
const ScopeDefault = "default"

// NodeTypeWidget is the only node type the router currently dispatches to.
const NodeTypeWidget = "widget"

// PipelineNode is a widget placement inside a pipeline. Its ID is an
// authoring-time identifier; live canvases may re-key instances, so the
// router resolves node IDs to mounted instance IDs through a binding table.
type PipelineNode struct {
	ID               string `json:"id"                         validate:"required"`
	Type             string `json:"type"                       validate:"required"`
	WidgetDefID      string `json:"widget_def_id"              validate:"required"`
	WidgetInstanceID string `json:"widget_instance_id,omitempty"`
	PositionX        int    `json:"position_x"`
	PositionY        int    `json:"position_y"`
}

// Connection is a directed edge from an output port to an input port.
// Invariant: From must name an output port of its node's definition and To a
// compatible input port of its node's definition; the service layer enforces
// this before a connection is persisted.
type Connection struct {
	ID   string  `json:"id"`
	From PortRef `json:"from" validate:"required"`
	To   PortRef `json:"to"   validate:"required"`
}

// Pipeline is a persisted directed graph of widget nodes and connections,
// scoped to a canvas. A disabled pipeline keeps its graph but its
// connections are inert.
type Pipeline struct {
	ID          string          `json:"id"`
	CanvasID    string          `json:"canvas_id"   validate:"required"`
	Name        string          `json:"name"        validate:"required,min=1"`
	Nodes       []*PipelineNode `json:"nodes"`
	Connections []*Connection   `json:"connections"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Node returns the pipeline node with the given ID.
func (p *Pipeline) Node(id string) (*PipelineNode, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return nil, false
}

// Connection returns the connection with the given ID.
func (p *Pipeline) Connection(id string) (*Connection, bool) {
	for _, c := range p.Connections {
		if c.ID == id {
			return c, true
		}
	}

	return nil, false
}

// HasWidgetDef reports whether any node in the pipeline references the
// given widget definition. Used by the preset dedup contract.
func (p *Pipeline) HasWidgetDef(widgetDefID string) bool {
	for _, n := range p.Nodes {
		if n.WidgetDefID == widgetDefID {
			return true
		}
	}

	return false
}

// VisibleFrom reports whether the pipeline should load for the given canvas:
// its own scope always, the default scope from anywhere.
func (p *Pipeline) VisibleFrom(canvasID string) bool {
	return p.CanvasID == canvasID || p.CanvasID == ScopeDefault
}
