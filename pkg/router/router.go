// Package router implements the live pipeline dispatcher bound to one
// mounted canvas.
package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hkcm91/stickernest/pkg/eventbus"
	"github.com/hkcm91/stickernest/pkg/events"
	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/sandbox"
	"github.com/hkcm91/stickernest/pkg/services"
)

const defaultQueueSize = 4096

// edge is one routable connection plus the pipeline it belongs to. The
// canvas scope rides along so remote emissions only route default-scope
// pipelines.
type edge struct {
	pipelineID string
	canvasID   string
	connection *models.Connection
}

// emissionJob is one queued HandleEmission call. Dispatch runs on a single
// goroutine so deliveries to any one target preserve source emission order.
type emissionJob struct {
	sourceNodeID string
	eventName    string
	payload      any
	remote       bool
}

// Router resolves widget emissions against the pipeline graph and delivers
// routed inputs into target sandboxes. It owns only lookups: widget
// instances belong to the canvas, pipelines to the store.
//
// Dispatch is async-yielding: HandleEmission enqueues and returns, so an
// emit -> input -> emit cycle becomes a bounded stream of queue jobs
// instead of unbounded recursion.
type Router struct {
	canvasID    string
	service     *services.Pipeline
	publisher   eventbus.EventPublisher
	emissionBus eventbus.EmissionBus
	logger      *slog.Logger

	mu        sync.RWMutex
	outgoing  map[string][]edge           // PortRef key -> routable edges
	sandboxes map[string]*sandbox.Sandbox // instance ID -> mounted sandbox
	bindings  map[string]string           // pipeline node ID -> instance ID
	nodeOf    map[string]string           // instance ID -> pipeline node ID

	queue  chan emissionJob
	cancel context.CancelFunc
	done   chan struct{}
}

// Option tunes router construction.
type Option func(*Router)

// WithEventPublisher wires lifecycle/routing event publication.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(r *Router) {
		r.publisher = publisher
	}
}

// WithEmissionBus wires cross-canvas emission publishing and consumption.
func WithEmissionBus(bus eventbus.EmissionBus) Option {
	return func(r *Router) {
		r.emissionBus = bus
	}
}

// WithQueueSize overrides the bounded dispatch queue capacity.
func WithQueueSize(size int) Option {
	return func(r *Router) {
		if size > 0 {
			r.queue = make(chan emissionJob, size)
		}
	}
}

// NewRouter creates a router for the given canvas scope.
func NewRouter(canvasID string, service *services.Pipeline, logger *slog.Logger, opts ...Option) *Router {
	r := &Router{
		canvasID:  canvasID,
		service:   service,
		logger:    logger.With("module", "router", "canvas_id", canvasID),
		outgoing:  make(map[string][]edge),
		sandboxes: make(map[string]*sandbox.Sandbox),
		bindings:  make(map[string]string),
		nodeOf:    make(map[string]string),
		queue:     make(chan emissionJob, defaultQueueSize),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start loads the enabled pipelines visible to this canvas, builds the
// adjacency index, and begins dispatching. If an emission bus is wired the
// router also starts consuming remote emissions.
func (r *Router) Start(ctx context.Context) error {
	if err := r.Reload(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.dispatchLoop(runCtx)

	if r.emissionBus != nil {
		if err := r.emissionBus.HandleEmissions(r.handleRemoteEmission); err != nil {
			return err
		}

		if err := r.emissionBus.SubscribeToEmissions(runCtx); err != nil {
			return err
		}
	}

	r.logger.Info("Router started")

	return nil
}

// Close stops dispatching. Mounted sandboxes are left alone: the canvas
// owns their lifecycle.
func (r *Router) Close() {
	if r.cancel == nil {
		return
	}

	r.cancel()
	<-r.done
}

// Reload rebuilds the adjacency index from the store. Visible pipelines are
// this scope's own plus the default scope; only enabled ones route.
func (r *Router) Reload(ctx context.Context) error {
	pipelines, err := r.service.ListForScope(ctx, r.canvasID)
	if err != nil {
		return err
	}

	outgoing := make(map[string][]edge)

	for _, pipeline := range pipelines {
		if !pipeline.Enabled {
			continue
		}

		for _, connection := range pipeline.Connections {
			key := connection.From.Key()
			outgoing[key] = append(outgoing[key], edge{
				pipelineID: pipeline.ID,
				canvasID:   pipeline.CanvasID,
				connection: connection,
			})
		}
	}

	r.mu.Lock()
	r.outgoing = outgoing
	r.mu.Unlock()

	r.logger.Debug("Adjacency index rebuilt", "pipelines", len(pipelines))

	return nil
}

// RegisterInstance mounts a sandbox with the router and starts pumping its
// emissions. The sandbox must already be started.
func (r *Router) RegisterInstance(ctx context.Context, sb *sandbox.Sandbox) {
	r.mu.Lock()
	r.sandboxes[sb.InstanceID()] = sb
	r.mu.Unlock()

	go r.pumpEmissions(ctx, sb)
}

// UnregisterInstance removes a sandbox from routing. Takes effect for all
// future emissions immediately; in-flight deliveries to it are dropped at
// the sandbox boundary.
func (r *Router) UnregisterInstance(instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sandboxes, instanceID)

	if nodeID, ok := r.nodeOf[instanceID]; ok {
		delete(r.nodeOf, instanceID)
		delete(r.bindings, nodeID)
	}
}

// BindNode maps a pipeline-authoring-time node ID to the currently mounted
// instance ID for this scope.
func (r *Router) BindNode(nodeID, instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.bindings[nodeID]; ok {
		delete(r.nodeOf, previous)
	}

	r.bindings[nodeID] = instanceID
	r.nodeOf[instanceID] = nodeID
}

// AddConnection inserts one edge into the live index. Called after the
// store accepted the mutation; takes effect for the next emission.
func (r *Router) AddConnection(pipelineID, canvasID string, connection *models.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := connection.From.Key()
	r.outgoing[key] = append(r.outgoing[key], edge{
		pipelineID: pipelineID,
		canvasID:   canvasID,
		connection: connection,
	})
}

// RemoveConnection drops an edge from the live index synchronously.
func (r *Router) RemoveConnection(pipelineID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, edges := range r.outgoing {
		filtered := edges[:0]

		for _, e := range edges {
			if e.pipelineID == pipelineID && e.connection.ID == connectionID {
				continue
			}

			filtered = append(filtered, e)
		}

		if len(filtered) == 0 {
			delete(r.outgoing, key)
		} else {
			r.outgoing[key] = filtered
		}
	}
}

// SetPipelineEnabled flips routing for one pipeline in the live index.
func (r *Router) SetPipelineEnabled(ctx context.Context, pipelineID string, enabled bool) error {
	if !enabled {
		r.removePipelineEdges(pipelineID)

		return nil
	}

	pipeline, err := r.service.FetchByID(ctx, pipelineID)
	if err != nil {
		return err
	}

	if !pipeline.VisibleFrom(r.canvasID) || !pipeline.Enabled {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Replace rather than append in case the pipeline was already indexed.
	r.removePipelineEdgesLocked(pipelineID)

	for _, connection := range pipeline.Connections {
		key := connection.From.Key()
		r.outgoing[key] = append(r.outgoing[key], edge{
			pipelineID: pipeline.ID,
			canvasID:   pipeline.CanvasID,
			connection: connection,
		})
	}

	return nil
}

func (r *Router) removePipelineEdges(pipelineID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removePipelineEdgesLocked(pipelineID)
}

func (r *Router) removePipelineEdgesLocked(pipelineID string) {
	for key, edges := range r.outgoing {
		filtered := edges[:0]

		for _, e := range edges {
			if e.pipelineID != pipelineID {
				filtered = append(filtered, e)
			}
		}

		if len(filtered) == 0 {
			delete(r.outgoing, key)
		} else {
			r.outgoing[key] = filtered
		}
	}
}

// HandleEmission routes one widget output event. It enqueues and returns;
// an emission with no wired destination is a no-op, never an error. A full
// queue drops the emission with a warning so event storms stay bounded and
// observable.
func (r *Router) HandleEmission(sourceNodeID, eventName string, payload any) {
	r.enqueue(emissionJob{
		sourceNodeID: sourceNodeID,
		eventName:    eventName,
		payload:      payload,
	})
}

func (r *Router) enqueue(job emissionJob) {
	select {
	case r.queue <- job:
	default:
		r.logger.Warn("Dispatch queue full, dropping emission",
			"source_node_id", job.sourceNodeID, "event", job.eventName)
	}
}

// handleRemoteEmission consumes emissions published by routers on other
// canvases. The origin canvas ignores its own echo; remote emissions route
// only through default-scope pipelines.
func (r *Router) handleRemoteEmission(_ context.Context, emission *events.WidgetEmitted) error {
	if emission.CanvasID == r.canvasID || emission.SourceNodeID == "" {
		return nil
	}

	r.enqueue(emissionJob{
		sourceNodeID: emission.SourceNodeID,
		eventName:    emission.EventName,
		payload:      emission.Payload,
		remote:       true,
	})

	return nil
}

func (r *Router) dispatchLoop(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.queue:
			r.dispatch(ctx, job)
		}
	}
}

// dispatch fans one emission out to every matching edge. Deliveries are
// fire-and-forget; a failed or skipped delivery never aborts the loop.
func (r *Router) dispatch(ctx context.Context, job emissionJob) {
	key := models.PortRef{NodeID: job.sourceNodeID, PortName: job.eventName}.Key()

	r.mu.RLock()
	edges := make([]edge, len(r.outgoing[key]))
	copy(edges, r.outgoing[key])
	r.mu.RUnlock()

	for _, e := range edges {
		if job.remote && e.canvasID != models.ScopeDefault {
			continue
		}

		r.deliver(ctx, e, job.payload)
	}
}

func (r *Router) deliver(ctx context.Context, e edge, payload any) {
	targetNodeID := e.connection.To.NodeID

	r.mu.RLock()
	instanceID, bound := r.bindings[targetNodeID]
	sb := r.sandboxes[instanceID]
	r.mu.RUnlock()

	if !bound {
		r.skip(ctx, e, events.SkipReasonNodeUnbound)

		return
	}

	if sb == nil || !sb.Ready() {
		r.skip(ctx, e, events.SkipReasonTargetNotMounted)

		return
	}

	if err := sb.DeliverInput(e.connection.To.PortName, payload); err != nil {
		r.logger.Warn("Failed to frame routed input",
			"connection_id", e.connection.ID, "error", err)

		return
	}

	if r.publisher != nil {
		_ = r.publisher.Publish(ctx, e.pipelineID, events.InputDelivered{
			BaseEvent:        events.NewBaseEvent(events.InputDeliveredEvent, r.canvasID),
			PipelineID:       e.pipelineID,
			ConnectionID:     e.connection.ID,
			TargetInstanceID: instanceID,
			PortName:         e.connection.To.PortName,
		})
	}
}

func (r *Router) skip(ctx context.Context, e edge, reason string) {
	r.logger.Debug("Skipping delivery",
		"connection_id", e.connection.ID,
		"target_node_id", e.connection.To.NodeID,
		"reason", reason)

	if r.publisher != nil {
		_ = r.publisher.Publish(ctx, e.pipelineID, events.DeliverySkipped{
			BaseEvent:    events.NewBaseEvent(events.DeliverySkippedEvent, r.canvasID),
			PipelineID:   e.pipelineID,
			ConnectionID: e.connection.ID,
			TargetNodeID: e.connection.To.NodeID,
			Reason:       reason,
		})
	}
}

// pumpEmissions drains one sandbox's host-ward stream: lifecycle
// announcements (READY, degraded) become lifecycle events, widget:emit
// frames enter the dispatch queue and, when a bus is wired, go out to
// other canvases.
func (r *Router) pumpEmissions(ctx context.Context, sb *sandbox.Sandbox) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sb.Done():
			return
		case env := <-sb.Emissions():
			r.handleSandboxEnvelope(ctx, sb, env)
		}
	}
}

func (r *Router) handleSandboxEnvelope(ctx context.Context, sb *sandbox.Sandbox, env *sandbox.Envelope) {
	switch env.Type {
	case sandbox.MessageReady:
		if r.publisher != nil {
			_ = r.publisher.Publish(ctx, sb.InstanceID(), events.WidgetReady{
				BaseEvent:   events.NewBaseEvent(events.WidgetReadyEvent, r.canvasID),
				InstanceID:  sb.InstanceID(),
				WidgetDefID: sb.Instance().WidgetDefID,
			})
		}

	case sandbox.MessageDegraded:
		if r.publisher != nil {
			_ = r.publisher.Publish(ctx, sb.InstanceID(), events.WidgetDegraded{
				BaseEvent:  events.NewBaseEvent(events.WidgetDegradedEvent, r.canvasID),
				InstanceID: sb.InstanceID(),
				Reason:     env.DegradedReason(),
			})
		}

	case sandbox.MessageEmit:
		payload, err := env.EventPayload()
		if err != nil {
			r.logger.Debug("Dropping malformed emission", "error", err)

			return
		}

		r.mu.RLock()
		nodeID := r.nodeOf[sb.InstanceID()]
		r.mu.RUnlock()

		if nodeID != "" {
			r.HandleEmission(nodeID, payload.Type, payload.Payload)
		}

		if r.emissionBus != nil {
			_ = r.emissionBus.PublishEmission(ctx, &events.WidgetEmitted{
				BaseEvent:        events.NewBaseEvent(events.WidgetEmittedEvent, r.canvasID),
				SourceInstanceID: sb.InstanceID(),
				SourceNodeID:     nodeID,
				EventName:        payload.Type,
				Payload:          payload.Payload,
			})
		}

	default:
		// Unknown host-ward types are ignored per the wire contract.
	}
}
