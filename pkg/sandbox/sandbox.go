package sandbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hkcm91/stickernest/pkg/models"
)

// State is the lifecycle state of a sandboxed widget instance.
type State string

const (
	StateStarting State = "starting" // program initializing, READY not yet announced
	StateReady    State = "ready"    // READY observed, deliveries flow
	StateDegraded State = "degraded" // READY missed its deadline
	StateClosed   State = "closed"   // sandbox shut down
)

// Degradation reasons carried by the host-side announcement.
const (
	DegradedReasonInitFailed   = "init_failed"
	DegradedReasonReadyTimeout = "ready_timeout"
)

// EmitFunc lets a program emit a typed output event host-ward. Emissions
// are named after the program's declared output ports; unnamed emissions
// simply never match a connection.
type EmitFunc func(eventName string, payload any)

// Program is the widget-side code executed inside the sandbox. It runs on
// the sandbox goroutine and communicates with the host only through the
// message envelope, never by shared memory.
type Program interface {
	// Init runs before READY is announced. Returning an error keeps the
	// sandbox out of the ready state.
	Init(ctx context.Context, emit EmitFunc) error
	// OnInput handles a pipeline-routed widget:input delivery.
	OnInput(ctx context.Context, portName string, value any)
	// OnEvent handles an ad hoc widget:event delivery.
	OnEvent(ctx context.Context, eventName string, payload any)
}

// Options tune a sandbox instance.
type Options struct {
	// ReadyTimeout bounds the wait for the program's READY announcement.
	// On expiry the sandbox enters StateDegraded (non-fatal, no retry).
	ReadyTimeout time.Duration
	// QueueSize caps the pre-READY delivery queue; overflow drops the
	// oldest frame with a logged warning.
	QueueSize int
	// MailboxSize is the buffered capacity of the host->widget mailbox.
	MailboxSize int
	// EmissionBuffer is the buffered capacity of the widget->host channel.
	EmissionBuffer int
}

const (
	defaultReadyTimeout   = 10 * time.Second
	defaultQueueSize      = 256
	defaultMailboxSize    = 64
	defaultEmissionBuffer = 64
)

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	if opts.MailboxSize <= 0 {
		opts.MailboxSize = defaultMailboxSize
	}

	if opts.EmissionBuffer <= 0 {
		opts.EmissionBuffer = defaultEmissionBuffer
	}

	return opts
}

// Sandbox is the host-side handle to one isolated widget instance. The
// program runs on a dedicated goroutine; all traffic crosses the boundary
// as serialized envelopes through channels. The host holds this handle,
// never the program's internal state.
type Sandbox struct {
	instance *models.WidgetInstance
	program  Program
	logger   *slog.Logger
	opts     Options

	mailbox   chan []byte
	emissions chan *Envelope

	mu      sync.Mutex
	state   State
	pending [][]byte

	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a sandbox for the given instance. Call Start to boot the
// program.
func New(instance *models.WidgetInstance, program Program, logger *slog.Logger, opts Options) *Sandbox {
	opts = opts.withDefaults()

	return &Sandbox{
		instance: instance,
		program:  program,
		logger: logger.With(
			"module", "sandbox",
			"instance_id", instance.ID,
			"widget_def_id", instance.WidgetDefID,
		),
		opts:      opts,
		mailbox:   make(chan []byte, opts.MailboxSize),
		emissions: make(chan *Envelope, opts.EmissionBuffer),
		state:     StateStarting,
		done:      make(chan struct{}),
	}
}

// InstanceID returns the widget instance this sandbox hosts.
func (s *Sandbox) InstanceID() string {
	return s.instance.ID
}

// Instance returns the hosted widget instance record.
func (s *Sandbox) Instance() *models.WidgetInstance {
	return s.instance
}

// State returns the current lifecycle state.
func (s *Sandbox) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Ready reports whether the sandbox has announced READY.
func (s *Sandbox) Ready() bool {
	return s.State() == StateReady
}

// Emissions is the host-ward stream: a READY envelope first, then
// widget:emit envelopes. Select against Done to observe shutdown; the
// channel itself stays open so a straggling program emit can never panic.
func (s *Sandbox) Emissions() <-chan *Envelope {
	return s.emissions
}

// Done is closed when the program goroutine has exited.
func (s *Sandbox) Done() <-chan struct{} {
	return s.done
}

// Start boots the program goroutine. The sandbox announces READY once the
// program's Init returns, or degrades after the ready timeout.
func (s *Sandbox) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx = runCtx
	s.cancel = cancel

	go s.run(runCtx)
}

// Close shuts the sandbox down and waits for the program goroutine to
// exit. Deliveries after Close are dropped.
func (s *Sandbox) Close() {
	s.mu.Lock()
	alreadyClosed := s.state == StateClosed
	s.state = StateClosed
	s.pending = nil
	s.mu.Unlock()

	if alreadyClosed || s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
}

// Deliver hands a raw wire frame to the widget. Before READY the frame is
// queued and flushed on readiness (deterministic queue-and-flush, capped at
// QueueSize with drop-oldest). After Close it is silently dropped. Never
// blocks: a full mailbox drops the frame with a warning.
func (s *Sandbox) Deliver(raw []byte) {
	s.mu.Lock()

	switch s.state {
	case StateClosed:
		s.mu.Unlock()

		return
	case StateReady:
		s.mu.Unlock()

		select {
		case s.mailbox <- raw:
		default:
			s.logger.Warn("Mailbox full, dropping delivery")
		}
	default: // starting or degraded: queue until READY
		if len(s.pending) >= s.opts.QueueSize {
			s.pending = s.pending[1:]
			s.logger.Warn("Pre-ready queue full, dropping oldest delivery")
		}

		s.pending = append(s.pending, raw)
		s.mu.Unlock()
	}
}

// DeliverInput frames and delivers a pipeline-routed input targeting a
// declared input port.
func (s *Sandbox) DeliverInput(portName string, value any) error {
	env, err := NewInputEnvelope(portName, value)
	if err != nil {
		return err
	}

	raw, err := env.Encode()
	if err != nil {
		return err
	}

	s.Deliver(raw)

	return nil
}

// DeliverEvent frames and delivers an ad hoc host-to-widget event.
func (s *Sandbox) DeliverEvent(eventName string, payload any) error {
	env, err := NewEventEnvelope(eventName, payload)
	if err != nil {
		return err
	}

	raw, err := env.Encode()
	if err != nil {
		return err
	}

	s.Deliver(raw)

	return nil
}

func (s *Sandbox) run(ctx context.Context) {
	defer close(s.done)

	initDone := make(chan error, 1)

	go func() {
		initDone <- s.program.Init(ctx, s.emit)
	}()

	readyTimer := time.NewTimer(s.opts.ReadyTimeout)
	defer readyTimer.Stop()

	initCh := initDone
	timerCh := readyTimer.C

	for {
		select {
		case <-ctx.Done():
			s.setState(StateClosed)

			return

		case err := <-initCh:
			initCh = nil
			timerCh = nil

			if err != nil {
				s.logger.Warn("Widget program failed to initialize", "error", err)
				s.degrade(ctx, DegradedReasonInitFailed)

				continue
			}

			s.markReady(ctx)

		case <-timerCh:
			timerCh = nil

			s.logger.Warn("Widget never announced READY within deadline",
				"timeout", s.opts.ReadyTimeout)
			s.degrade(ctx, DegradedReasonReadyTimeout)

		case raw := <-s.mailbox:
			s.dispatch(ctx, raw)
		}
	}
}

// markReady flips the state and replays queued deliveries in arrival order
// before any newer mailbox traffic is processed.
func (s *Sandbox) markReady(ctx context.Context) {
	s.mu.Lock()

	if s.state == StateClosed {
		s.mu.Unlock()

		return
	}

	if s.state == StateDegraded {
		// Init finished after the deadline. Recover rather than waste the
		// instance; diagnostics already flagged the slow start.
		s.logger.Warn("Widget announced READY after deadline, recovering")
	}

	s.state = StateReady
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.sendEmission(ctx, ReadyEnvelope())
	s.logger.Debug("Widget ready", "flushed_deliveries", len(queued))

	for _, raw := range queued {
		s.dispatch(ctx, raw)
	}
}

func (s *Sandbox) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		s.state = state
	}
}

// degrade flips the state and announces degradation host-ward, at most once
// per lifetime. Ready or closed sandboxes never degrade.
func (s *Sandbox) degrade(ctx context.Context, reason string) {
	s.mu.Lock()

	if s.state != StateStarting {
		s.mu.Unlock()

		return
	}

	s.state = StateDegraded
	s.mu.Unlock()

	s.sendEmission(ctx, DegradedEnvelope(reason))
}

// dispatch validates and routes one inbound frame. Malformed or unknown
// envelopes are dropped without disturbing subsequent handling.
func (s *Sandbox) dispatch(ctx context.Context, raw []byte) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		s.logger.Debug("Dropping malformed message", "error", err)

		return
	}

	switch env.Type {
	case MessageInput:
		payload, err := env.InputPayload()
		if err != nil {
			s.logger.Debug("Dropping malformed input delivery", "error", err)

			return
		}

		s.program.OnInput(ctx, payload.PortName, payload.Value)

	case MessageEvent:
		payload, err := env.EventPayload()
		if err != nil {
			s.logger.Debug("Dropping malformed event delivery", "error", err)

			return
		}

		s.program.OnEvent(ctx, payload.Type, payload.Payload)

	default:
		// Unknown types are ignored silently per the wire contract.
		s.logger.Debug("Ignoring message with unknown type", "type", env.Type)
	}
}

func (s *Sandbox) emit(eventName string, payload any) {
	env, err := NewEmitEnvelope(eventName, payload)
	if err != nil {
		s.logger.Warn("Dropping unserializable emission", "event", eventName, "error", err)

		return
	}

	s.sendEmission(s.runCtx, env)
}

func (s *Sandbox) sendEmission(ctx context.Context, env *Envelope) {
	select {
	case s.emissions <- env:
	case <-ctx.Done():
	}
}
