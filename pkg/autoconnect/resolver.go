// Package autoconnect proposes port pairings for a set of selected widget
// definitions, used to snap a new pipeline together without user wiring.
package autoconnect

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hkcm91/stickernest/pkg/models"
)

// Policy controls whether a port may be claimed more than once during a
// single resolve pass. Both default to off: each port pairs at most once.
type Policy struct {
	AllowFanOut bool // an output port may feed multiple inputs
	AllowFanIn  bool // an input port may accept multiple outputs
}

// Pairing is one proposed connection between two selected definitions,
// addressed by their position in the selection order.
type Pairing struct {
	FromIndex int         `json:"from_index"`
	FromPort  models.Port `json:"from_port"`
	ToIndex   int         `json:"to_index"`
	ToPort    models.Port `json:"to_port"`
}

// Resolve walks ordered pairs (i, j) with i < j in selection order and
// proposes the first compatible unclaimed output/input pair for each,
// breaking ties by declaration order. The pairing count feeds the UI
// confirmation ("N widgets will auto-connect, M connections").
func Resolve(definitions []*models.WidgetDefinition, policy Policy) []Pairing {
	pairings := make([]Pairing, 0)

	outputClaimed := make(map[string]bool) // defIndex:portName
	inputClaimed := make(map[string]bool)

	for i := range definitions {
		for j := i + 1; j < len(definitions); j++ {
			for _, output := range definitions[i].Outputs {
				outputKey := claimKey(i, output.Name)
				if outputClaimed[outputKey] && !policy.AllowFanOut {
					continue
				}

				// First compatible unclaimed pair wins for this output.
				for _, input := range definitions[j].Inputs {
					inputKey := claimKey(j, input.Name)
					if inputClaimed[inputKey] && !policy.AllowFanIn {
						continue
					}

					if !models.Compatible(output, input) {
						continue
					}

					pairings = append(pairings, Pairing{
						FromIndex: i,
						FromPort:  output,
						ToIndex:   j,
						ToPort:    input,
					})
					outputClaimed[outputKey] = true
					inputClaimed[inputKey] = true

					break
				}
			}
		}
	}

	return pairings
}

func claimKey(index int, portName string) string {
	return fmt.Sprintf("%d:%s", index, portName)
}

// BuildConnections materializes pairings into connection records against
// concrete pipeline node IDs, indexed parallel to the resolved selection.
func BuildConnections(pairings []Pairing, nodeIDs []string) []*models.Connection {
	connections := make([]*models.Connection, 0, len(pairings))

	for _, pairing := range pairings {
		if pairing.FromIndex >= len(nodeIDs) || pairing.ToIndex >= len(nodeIDs) {
			continue
		}

		connections = append(connections, &models.Connection{
			ID:   uuid.New().String(),
			From: models.PortRef{NodeID: nodeIDs[pairing.FromIndex], PortName: pairing.FromPort.Name},
			To:   models.PortRef{NodeID: nodeIDs[pairing.ToIndex], PortName: pairing.ToPort.Name},
		})
	}

	return connections
}
