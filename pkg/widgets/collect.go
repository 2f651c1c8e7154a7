package widgets

import (
	"context"
	"sync"

	"github.com/hkcm91/stickernest/pkg/sandbox"
)

// ReceivedInput is one routed delivery observed by a Collect program.
type ReceivedInput struct {
	PortName string
	Value    any
}

// ReceivedEvent is one ad hoc event observed by a Collect program.
type ReceivedEvent struct {
	EventName string
	Payload   any
}

// Collect records everything delivered to it. It emits nothing; tests and
// debug canvases read the recorded traffic back.
type Collect struct {
	mu     sync.Mutex
	inputs []ReceivedInput
	events []ReceivedEvent
}

func NewCollect() *Collect {
	return &Collect{}
}

func (c *Collect) Init(_ context.Context, _ sandbox.EmitFunc) error {
	return nil
}

func (c *Collect) OnInput(_ context.Context, portName string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inputs = append(c.inputs, ReceivedInput{PortName: portName, Value: value})
}

func (c *Collect) OnEvent(_ context.Context, eventName string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ReceivedEvent{EventName: eventName, Payload: payload})
}

// Inputs returns a snapshot of the routed deliveries received so far.
func (c *Collect) Inputs() []ReceivedInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]ReceivedInput, len(c.inputs))
	copy(snapshot, c.inputs)

	return snapshot
}

// Events returns a snapshot of the ad hoc events received so far.
func (c *Collect) Events() []ReceivedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]ReceivedEvent, len(c.events))
	copy(snapshot, c.events)

	return snapshot
}
