// Package models defines port-based models for widget connections.
package models

// PortType is a tag from the closed payload-type vocabulary shared by
// widget manifests and connection validation.
type PortType string

const (
	PortTypeAny     PortType = "any"
	PortTypeEvent   PortType = "event"
	PortTypeString  PortType = "string"
	PortTypeNumber  PortType = "number"
	PortTypeBoolean PortType = "boolean"
	PortTypeObject  PortType = "object"
	PortTypeArray   PortType = "array"
	PortTypeColor   PortType = "color"
)

// PortTypes enumerates the full type vocabulary.
var PortTypes = []PortType{
	PortTypeAny,
	PortTypeEvent,
	PortTypeString,
	PortTypeNumber,
	PortTypeBoolean,
	PortTypeObject,
	PortTypeArray,
	PortTypeColor,
}

// Port represents a connection point declared on a widget definition.
// Manifests are normalized into this shape at load time; all downstream
// logic operates on it only.
type Port struct {
	Name        string   `json:"name" validate:"required"`
	Type        PortType `json:"type"`
	Description string   `json:"description,omitempty"`
}

// PortDirection represents the direction of data flow for a port.
type PortDirection string

const (
	PortDirectionInput  PortDirection = "input"
	PortDirectionOutput PortDirection = "output"
)

// Compatible reports whether an output port can feed an input port.
// True iff the types are equal or either side is the wildcard "any".
// Total over the vocabulary, no coercion, no side effects.
func Compatible(output, input Port) bool {
	return output.Type == PortTypeAny ||
		input.Type == PortTypeAny ||
		output.Type == input.Type
}

// PortRef addresses a port on a pipeline node.
type PortRef struct {
	NodeID   string `json:"nodeId"   validate:"required"`
	PortName string `json:"portName" validate:"required"`
}

// Key returns the "{node_id}:{port_name}" form used by adjacency indexes.
func (r PortRef) Key() string {
	return r.NodeID + ":" + r.PortName
}

// ParsePortKey splits a "{node_id}:{port_name}" key into its components.
func ParsePortKey(key string) (string, string, bool) {
	for i := range len(key) {
		if key[i] == ':' {
			return key[:i], key[i+1:], true
		}
	}

	return "", "", false
}
