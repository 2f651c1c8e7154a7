package sandbox_test

import (
	"testing"

	"github.com/hkcm91/stickernest/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope_Valid(t *testing.T) {
	t.Parallel()

	env, err := sandbox.DecodeEnvelope([]byte(`{"type":"widget:input","payload":{"portName":"trigger","value":{"n":1}}}`))
	require.NoError(t, err)
	assert.Equal(t, sandbox.MessageInput, env.Type)

	payload, err := env.InputPayload()
	require.NoError(t, err)
	assert.Equal(t, "trigger", payload.PortName)
	assert.Equal(t, map[string]any{"n": float64(1)}, payload.Value)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty object", raw: `{}`},
		{name: "unrelated keys", raw: `{"foo":"bar"}`},
		{name: "bare string", raw: `"hello"`},
		{name: "null", raw: `null`},
		{name: "number", raw: `42`},
		{name: "non-string type", raw: `{"type":7}`},
		{name: "truncated", raw: `{"type":"widget:event"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := sandbox.DecodeEnvelope([]byte(tc.raw))
			require.ErrorIs(t, err, sandbox.ErrMalformedMessage)
		})
	}
}

func TestEnvelope_EventPayload_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "null payload", raw: `{"type":"widget:event","payload":null}`},
		{name: "missing payload", raw: `{"type":"widget:event"}`},
		{name: "payload without type", raw: `{"type":"widget:event","payload":{"payload":1}}`},
		{name: "payload wrong shape", raw: `{"type":"widget:event","payload":"str"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env, err := sandbox.DecodeEnvelope([]byte(tc.raw))
			require.NoError(t, err)

			_, err = env.EventPayload()
			require.ErrorIs(t, err, sandbox.ErrMalformedMessage)
		})
	}
}

func TestEnvelope_InputPayload_Malformed(t *testing.T) {
	t.Parallel()

	env, err := sandbox.DecodeEnvelope([]byte(`{"type":"widget:input","payload":{"value":1}}`))
	require.NoError(t, err)

	_, err = env.InputPayload()
	require.ErrorIs(t, err, sandbox.ErrMalformedMessage)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	t.Parallel()

	env, err := sandbox.NewInputEnvelope("trigger", map[string]any{"n": 1})
	require.NoError(t, err)

	raw, err := env.Encode()
	require.NoError(t, err)

	decoded, err := sandbox.DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, sandbox.MessageInput, decoded.Type)

	payload, err := decoded.InputPayload()
	require.NoError(t, err)
	assert.Equal(t, "trigger", payload.PortName)
}

func TestReadyEnvelope(t *testing.T) {
	t.Parallel()

	raw, err := sandbox.ReadyEnvelope().Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"READY"}`, string(raw))
}
