// Package web provides HTTP handlers and REST API endpoints for pipeline
// management.
package web

import (
	"github.com/hkcm91/stickernest/pkg/autoconnect"
	"github.com/hkcm91/stickernest/pkg/models"
)

// CreatePipelineRequest represents the request body for creating a new pipeline.
type CreatePipelineRequest struct {
	Name     string                 `json:"name"      validate:"required,min=1"`
	CanvasID string                 `json:"canvas_id"`
	Nodes    []*models.PipelineNode `json:"nodes"`
	Enabled  bool                   `json:"enabled"`
}

// AddConnectionRequest represents the request body for wiring two ports.
type AddConnectionRequest struct {
	From models.PortRef `json:"from" validate:"required"`
	To   models.PortRef `json:"to"   validate:"required"`
}

// AddWidgetsRequest represents the request body for applying a widget preset
// to a pipeline.
type AddWidgetsRequest struct {
	WidgetDefIDs []string `json:"widget_def_ids" validate:"required,min=1"`
}

// AutoConnectPreviewRequest asks for the pairings a selection would produce,
// without persisting anything.
type AutoConnectPreviewRequest struct {
	WidgetDefIDs []string `json:"widget_def_ids" validate:"required,min=2"`
	AllowFanOut  bool     `json:"allow_fan_out"`
	AllowFanIn   bool     `json:"allow_fan_in"`
}

// AutoConnectPreviewResponse reports the proposal for UI confirmation:
// "N widgets will auto-connect, M connections".
type AutoConnectPreviewResponse struct {
	WidgetCount     int                   `json:"widget_count"`
	ConnectionCount int                   `json:"connection_count"`
	Pairings        []autoconnect.Pairing `json:"pairings"`
}
