// Package events defines event types for widget lifecycle and routing
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topics.
const Topic = "stickernest.events"             // lifecycle and routing events
const EmissionsTopic = "stickernest.emissions" // cross-context widget emissions

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Widget lifecycle events.
	WidgetReadyEvent    EventType = "widget.ready"
	WidgetDegradedEvent EventType = "widget.degraded"

	// Routing events.
	WidgetEmittedEvent   EventType = "widget.emitted"
	InputDeliveredEvent  EventType = "input.delivered"
	DeliverySkippedEvent EventType = "delivery.skipped"

	// Pipeline lifecycle events.
	PipelineEnabledEvent  EventType = "pipeline.enabled"
	PipelineDisabledEvent EventType = "pipeline.disabled"
)

// Skip reasons carried by DeliverySkipped.
const (
	SkipReasonTargetNotMounted = "target_not_mounted"
	SkipReasonNodeUnbound      = "node_unbound"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	CanvasID  string         `json:"canvas_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type WidgetReady struct {
	BaseEvent

	InstanceID  string `json:"instance_id"`
	WidgetDefID string `json:"widget_def_id"`
}

func (w WidgetReady) GetType() EventType {
	return WidgetReadyEvent
}

type WidgetDegraded struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	Reason     string `json:"reason"`
}

func (w WidgetDegraded) GetType() EventType {
	return WidgetDegradedEvent
}

// WidgetEmitted announces a typed output event from a mounted widget. It is
// published on the emissions topic so routers on other canvases can route
// default-scope pipelines; the origin canvas ignores its own echo.
type WidgetEmitted struct {
	BaseEvent

	SourceInstanceID string `json:"source_instance_id"`
	SourceNodeID     string `json:"source_node_id"`
	EventName        string `json:"event_name"`
	Payload          any    `json:"payload"`
}

func (w WidgetEmitted) GetType() EventType {
	return WidgetEmittedEvent
}

type InputDelivered struct {
	BaseEvent

	PipelineID       string `json:"pipeline_id"`
	ConnectionID     string `json:"connection_id"`
	TargetInstanceID string `json:"target_instance_id"`
	PortName         string `json:"port_name"`
}

func (i InputDelivered) GetType() EventType {
	return InputDeliveredEvent
}

type DeliverySkipped struct {
	BaseEvent

	PipelineID   string `json:"pipeline_id"`
	ConnectionID string `json:"connection_id"`
	TargetNodeID string `json:"target_node_id"`
	Reason       string `json:"reason"`
}

func (d DeliverySkipped) GetType() EventType {
	return DeliverySkippedEvent
}

type PipelineEnabled struct {
	BaseEvent

	PipelineID string `json:"pipeline_id"`
}

func (p PipelineEnabled) GetType() EventType {
	return PipelineEnabledEvent
}

type PipelineDisabled struct {
	BaseEvent

	PipelineID string `json:"pipeline_id"`
}

func (p PipelineDisabled) GetType() EventType {
	return PipelineDisabledEvent
}

func NewBaseEvent(eventType EventType, canvasID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		CanvasID:  canvasID,
		Metadata:  make(map[string]any),
	}
}
