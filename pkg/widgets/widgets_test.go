package widgets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkcm91/stickernest/pkg/widgets"
)

func TestEcho_ReemitsInputs(t *testing.T) {
	t.Parallel()

	echo := widgets.NewEcho("echo")

	var (
		gotEvent   string
		gotPayload any
	)

	require.NoError(t, echo.Init(context.Background(), func(eventName string, payload any) {
		gotEvent = eventName
		gotPayload = payload
	}))

	echo.OnInput(context.Background(), "in", "hello")

	assert.Equal(t, "echo", gotEvent)
	assert.Equal(t, "hello", gotPayload)
}

func TestCollect_RecordsTraffic(t *testing.T) {
	t.Parallel()

	collect := widgets.NewCollect()
	ctx := context.Background()

	require.NoError(t, collect.Init(ctx, nil))

	collect.OnInput(ctx, "color", "#ff0000")
	collect.OnInput(ctx, "color", "#00ff00")
	collect.OnEvent(ctx, "ping", map[string]any{"n": 1})

	inputs := collect.Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, "#ff0000", inputs[0].Value)
	assert.Equal(t, "#00ff00", inputs[1].Value)

	events := collect.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "ping", events[0].EventName)
}

func TestCounter_EmitsRunningTotal(t *testing.T) {
	t.Parallel()

	counter := widgets.NewCounter()
	ctx := context.Background()

	var totals []any

	require.NoError(t, counter.Init(ctx, func(_ string, payload any) {
		totals = append(totals, payload)
	}))

	counter.OnInput(ctx, "increment", nil)
	counter.OnInput(ctx, "increment", nil)
	counter.OnEvent(ctx, "noise", nil)

	assert.Equal(t, 2, counter.Count())
	assert.Equal(t, []any{1, 2}, totals)
}
