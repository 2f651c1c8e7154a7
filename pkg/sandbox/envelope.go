// Package sandbox implements the message envelope and lifecycle handshake
// between the host and one isolated widget instance.
package sandbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Message type tags of the host<->widget wire protocol. Unknown tags are
// ignored silently by both sides.
const (
	MessageReady = "READY"        // widget -> host, exactly once per lifetime
	MessageEmit  = "widget:emit"  // widget -> host, typed output event
	MessageEvent = "widget:event" // host -> widget, ad hoc event delivery
	MessageInput = "widget:input" // host -> widget, pipeline-routed input
)

// MessageDegraded is a host-side lifecycle announcement, not part of the
// widget wire protocol. It rides the emissions stream so the host can
// surface a sandbox that failed to reach readiness.
const MessageDegraded = "degraded"

// ErrMalformedMessage marks an envelope that failed shape validation.
// Malformed messages are dropped at the boundary, never surfaced to
// application logic.
var ErrMalformedMessage = errors.New("malformed message")

// Envelope is the outer frame of every host<->widget message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventPayload is the body of widget:emit and widget:event messages.
type EventPayload struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// InputPayload is the body of widget:input messages, targeting a declared
// input port.
type InputPayload struct {
	PortName string `json:"portName"`
	Value    any    `json:"value"`
}

var jsonNull = []byte("null")

// DecodeEnvelope parses a raw wire frame. Anything that is not a JSON
// object carrying a non-empty string "type" is malformed.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	return &env, nil
}

// EventPayload decodes the envelope body as an event payload.
func (e *Envelope) EventPayload() (*EventPayload, error) {
	if len(e.Payload) == 0 || bytes.Equal(e.Payload, jsonNull) {
		return nil, fmt.Errorf("%w: missing event payload", ErrMalformedMessage)
	}

	var payload EventPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if payload.Type == "" {
		return nil, fmt.Errorf("%w: event payload missing type", ErrMalformedMessage)
	}

	return &payload, nil
}

// InputPayload decodes the envelope body as a routed input payload.
func (e *Envelope) InputPayload() (*InputPayload, error) {
	if len(e.Payload) == 0 || bytes.Equal(e.Payload, jsonNull) {
		return nil, fmt.Errorf("%w: missing input payload", ErrMalformedMessage)
	}

	var payload InputPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if payload.PortName == "" {
		return nil, fmt.Errorf("%w: input payload missing portName", ErrMalformedMessage)
	}

	return &payload, nil
}

// ReadyEnvelope builds the one-shot readiness announcement.
func ReadyEnvelope() *Envelope {
	return &Envelope{Type: MessageReady}
}

type degradedPayload struct {
	Reason string `json:"reason"`
}

// DegradedEnvelope builds the host-side degradation announcement.
func DegradedEnvelope(reason string) *Envelope {
	body, _ := json.Marshal(degradedPayload{Reason: reason})

	return &Envelope{Type: MessageDegraded, Payload: body}
}

// DegradedReason extracts the reason from a degradation announcement.
func (e *Envelope) DegradedReason() string {
	var payload degradedPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return ""
	}

	return payload.Reason
}

// NewEmitEnvelope frames a widget output event for the host.
func NewEmitEnvelope(eventName string, payload any) (*Envelope, error) {
	return newEnvelope(MessageEmit, EventPayload{Type: eventName, Payload: payload})
}

// NewEventEnvelope frames an ad hoc host-to-widget event.
func NewEventEnvelope(eventName string, payload any) (*Envelope, error) {
	return newEnvelope(MessageEvent, EventPayload{Type: eventName, Payload: payload})
}

// NewInputEnvelope frames a pipeline-routed delivery to an input port.
func NewInputEnvelope(portName string, value any) (*Envelope, error) {
	return newEnvelope(MessageInput, InputPayload{PortName: portName, Value: value})
}

func newEnvelope(messageType string, payload any) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}

	return &Envelope{Type: messageType, Payload: body}, nil
}

// Encode serializes the envelope to its wire form.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", e.Type, err)
	}

	return data, nil
}
