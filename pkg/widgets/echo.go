// Package widgets provides builtin sandbox programs used by the daemon
// demo canvas and by routing tests.
package widgets

import (
	"context"

	"github.com/hkcm91/stickernest/pkg/sandbox"
)

// Echo re-emits every delivery on a single output port. Wiring an echo
// to itself is the simplest legitimate feedback loop.
type Echo struct {
	outputPort string
	emit       sandbox.EmitFunc
}

// NewEcho creates an echo program emitting on the given output port.
func NewEcho(outputPort string) *Echo {
	return &Echo{outputPort: outputPort}
}

func (e *Echo) Init(_ context.Context, emit sandbox.EmitFunc) error {
	e.emit = emit

	return nil
}

func (e *Echo) OnInput(_ context.Context, _ string, value any) {
	e.emit(e.outputPort, value)
}

func (e *Echo) OnEvent(_ context.Context, _ string, payload any) {
	e.emit(e.outputPort, payload)
}
