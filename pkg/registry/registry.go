// Package registry holds loaded widget definitions and answers port-schema
// questions for connection validation and auto-connect.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hkcm91/stickernest/pkg/models"
)

// Registry is the in-memory index of widget definitions. Definitions are
// immutable once registered.
type Registry struct {
	logger *slog.Logger

	mu          sync.RWMutex
	definitions map[string]*models.WidgetDefinition
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger.With("module", "registry"),
		definitions: make(map[string]*models.WidgetDefinition),
	}
}

// Register adds a widget definition. Definition IDs are globally unique;
// re-registering an ID is an error.
func (r *Registry) Register(def *models.WidgetDefinition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("widget definition requires an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[def.ID]; exists {
		return fmt.Errorf("widget definition %q already registered", def.ID)
	}

	r.definitions[def.ID] = def
	r.logger.Debug("Registered widget definition",
		"widget_def_id", def.ID,
		"inputs", len(def.Inputs),
		"outputs", len(def.Outputs))

	return nil
}

// Get returns the definition for the given ID.
func (r *Registry) Get(defID string) (*models.WidgetDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[defID]
	if !ok {
		return nil, fmt.Errorf("widget definition %q not registered", defID)
	}

	return def, nil
}

// Ports enumerates a definition's normalized input and output ports.
func (r *Registry) Ports(defID string) (inputs, outputs []models.Port, err error) {
	def, err := r.Get(defID)
	if err != nil {
		return nil, nil, err
	}

	return def.Inputs, def.Outputs, nil
}

// AreCompatible reports whether the output port can feed the input port.
func (r *Registry) AreCompatible(output, input models.Port) bool {
	return models.Compatible(output, input)
}

// IDs returns the registered definition IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.definitions))
	for id := range r.definitions {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// HealthCheck reports registry status for the API health endpoint.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.definitions) == 0 {
		return "no widget definitions loaded", false
	}

	return fmt.Sprintf("%d widget definitions loaded", len(r.definitions)), true
}
