package registry_test

import (
	"log/slog"
	"testing"

	"github.com/hkcm91/stickernest/pkg/models"
	"github.com/hkcm91/stickernest/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	return registry.NewRegistry(slog.Default())
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	def := &models.WidgetDefinition{
		ID:      "widget.picker",
		Name:    "Color Picker",
		Outputs: []models.Port{{Name: "color", Type: models.PortTypeString}},
	}

	require.NoError(t, reg.Register(def))

	got, err := reg.Get("widget.picker")
	require.NoError(t, err)
	assert.Equal(t, "Color Picker", got.Name)

	_, err = reg.Get("widget.unknown")
	assert.Error(t, err)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	def := &models.WidgetDefinition{ID: "widget.picker"}
	require.NoError(t, reg.Register(def))

	err := reg.Register(&models.WidgetDefinition{ID: "widget.picker"})
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistry_RegisterRequiresID(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&models.WidgetDefinition{}))
}

func TestRegistry_Ports(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	require.NoError(t, reg.Register(&models.WidgetDefinition{
		ID:      "widget.lamp",
		Inputs:  []models.Port{{Name: "color", Type: models.PortTypeString}},
		Outputs: []models.Port{{Name: "on", Type: models.PortTypeBoolean}},
	}))

	inputs, outputs, err := reg.Ports("widget.lamp")
	require.NoError(t, err)
	assert.Len(t, inputs, 1)
	assert.Len(t, outputs, 1)
	assert.Equal(t, "color", inputs[0].Name)
	assert.Equal(t, "on", outputs[0].Name)

	_, _, err = reg.Ports("widget.unknown")
	assert.Error(t, err)
}

func TestRegistry_AreCompatible(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	out := models.Port{Name: "color", Type: models.PortTypeString}
	in := models.Port{Name: "color", Type: models.PortTypeString}
	assert.True(t, reg.AreCompatible(out, in))

	in.Type = models.PortTypeNumber
	assert.False(t, reg.AreCompatible(out, in))

	in.Type = models.PortTypeAny
	assert.True(t, reg.AreCompatible(out, in))
}

func TestRegistry_IDsAndHealth(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	_, healthy := reg.HealthCheck()
	assert.False(t, healthy)

	require.NoError(t, reg.Register(&models.WidgetDefinition{ID: "widget.b"}))
	require.NoError(t, reg.Register(&models.WidgetDefinition{ID: "widget.a"}))

	assert.Equal(t, []string{"widget.a", "widget.b"}, reg.IDs())

	message, healthy := reg.HealthCheck()
	assert.True(t, healthy)
	assert.Contains(t, message, "2 widget definitions")
}
