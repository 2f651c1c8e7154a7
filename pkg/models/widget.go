package models

// WidgetDefinition is the static declaration of a widget type: its identity
// and its input/output port schema. Immutable once loaded into the registry.
type WidgetDefinition struct {
	ID          string `json:"id"   validate:"required"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Inputs      []Port `json:"inputs"`
	Outputs     []Port `json:"outputs"`
}

// InputPort returns the declared input port with the given name.
func (d *WidgetDefinition) InputPort(name string) (Port, bool) {
	for _, p := range d.Inputs {
		if p.Name == name {
			return p, true
		}
	}

	return Port{}, false
}

// OutputPort returns the declared output port with the given name.
func (d *WidgetDefinition) OutputPort(name string) (Port, bool) {
	for _, p := range d.Outputs {
		if p.Name == name {
			return p, true
		}
	}

	return Port{}, false
}

// WidgetInstance is a live placement of a widget definition on a canvas.
// The canvas owns its lifecycle; the router only ever looks it up by ID.
type WidgetInstance struct {
	ID          string         `json:"id"            validate:"required"`
	WidgetDefID string         `json:"widget_def_id" validate:"required"`
	CanvasID    string         `json:"canvas_id"`
	PositionX   int            `json:"position_x"`
	PositionY   int            `json:"position_y"`
	State       map[string]any `json:"state,omitempty"` // opaque to the router
}
