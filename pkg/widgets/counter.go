package widgets

import (
	"context"
	"sync"

	"github.com/hkcm91/stickernest/pkg/sandbox"
)

// Counter counts routed deliveries and emits the running total on its
// "count" output after each one.
type Counter struct {
	mu    sync.Mutex
	count int
	emit  sandbox.EmitFunc
}

// OutputCount is the counter's output port name.
const OutputCount = "count"

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Init(_ context.Context, emit sandbox.EmitFunc) error {
	c.emit = emit

	return nil
}

func (c *Counter) OnInput(_ context.Context, _ string, _ any) {
	c.mu.Lock()
	c.count++
	count := c.count
	c.mu.Unlock()

	c.emit(OutputCount, count)
}

func (c *Counter) OnEvent(_ context.Context, _ string, _ any) {
	// Ad hoc events do not advance the count.
}

// Count returns the number of deliveries received so far.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count
}
