package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// manifestSchema accepts both historical manifest shapes: ports keyed by
// "id" (preferred) or legacy "name", typed by "type" or "payloadType".
const manifestSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string"},
		"description": {"type": "string"},
		"io": {
			"type": "object",
			"properties": {
				"inputs": {"type": "array", "items": {"$ref": "#/definitions/port"}},
				"outputs": {"type": "array", "items": {"$ref": "#/definitions/port"}}
			}
		}
	},
	"definitions": {
		"port": {
			"type": "object",
			"anyOf": [
				{"required": ["id"]},
				{"required": ["name"]}
			],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"name": {"type": "string", "minLength": 1},
				"type": {"type": "string"},
				"payloadType": {"type": "string"},
				"description": {"type": "string"}
			}
		}
	}
}`

type manifestPort struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	PayloadType string `json:"payloadType"`
	Description string `json:"description"`
}

type manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IO          struct {
		Inputs  []manifestPort `json:"inputs"`
		Outputs []manifestPort `json:"outputs"`
	} `json:"io"`
}

// ParseManifest validates a widget manifest document and normalizes it into
// a WidgetDefinition. Duck-typed manifest shapes are resolved here, at the
// boundary; nothing downstream sees the raw form.
func ParseManifest(data []byte) (*models.WidgetDefinition, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate widget manifest: %w", err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("invalid widget manifest: %s", result.Errors()[0].String())
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode widget manifest: %w", err)
	}

	def := &models.WidgetDefinition{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Inputs:      normalizePorts(m.IO.Inputs),
		Outputs:     normalizePorts(m.IO.Outputs),
	}

	return def, nil
}

func normalizePorts(ports []manifestPort) []models.Port {
	normalized := make([]models.Port, 0, len(ports))
	for _, p := range ports {
		normalized = append(normalized, normalizePort(p))
	}

	return normalized
}

// normalizePort maps both manifest shapes onto the single Port form:
// "id" wins over legacy "name", "type" over "payloadType", and an absent
// type defaults to the wildcard.
func normalizePort(p manifestPort) models.Port {
	name := p.ID
	if name == "" {
		name = p.Name
	}

	portType := p.Type
	if portType == "" {
		portType = p.PayloadType
	}

	if portType == "" {
		portType = string(models.PortTypeAny)
	}

	return models.Port{
		Name:        name,
		Type:        models.PortType(portType),
		Description: p.Description,
	}
}

// LoadManifests reads every *.json widget manifest under dir and registers
// the resulting definitions.
func (r *Registry) LoadManifests(dir string) error {
	root := os.DirFS(dir)

	manifestFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list widget manifests: %w", err)
	}

	r.logger.Info("Loading widget manifests", "path", dir, "count", len(manifestFiles))

	for _, file := range manifestFiles {
		data, err := fs.ReadFile(root, file)
		if err != nil {
			return fmt.Errorf("failed to read widget manifest %s: %w", file, err)
		}

		def, err := ParseManifest(data)
		if err != nil {
			return fmt.Errorf("widget manifest %s: %w", file, err)
		}

		if err := r.Register(def); err != nil {
			return err
		}

		r.logger.Info("Loaded widget manifest", "file", file, "widget_def_id", def.ID)
	}

	return nil
}
