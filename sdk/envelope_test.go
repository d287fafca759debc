package sdk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope_StripsReservedKeys(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"_event":"cart.updated","id":5}`))
	require.NoError(t, err)

	assert.True(t, env.IsObject())
	assert.Equal(t, "cart.updated", env.Event)
	assert.JSONEq(t, `{"id":5}`, string(env.Body))
}

func TestParseEnvelope_KeepsFieldOrder(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"z":1,"_event":"Cart.Emptied","a":{"y":2,"b":3}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":{"y":2,"b":3}}`, string(env.Body))
}

func TestParseEnvelope_Console(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"_console":["query took", 12, {"sql":"select"}],"ok":true}`))
	require.NoError(t, err)

	require.Len(t, env.Console, 3)
	assert.JSONEq(t, `"query took"`, string(env.Console[0]))
	assert.JSONEq(t, `12`, string(env.Console[1]))
	assert.JSONEq(t, `{"sql":"select"}`, string(env.Console[2]))
	assert.Empty(t, env.Event)
	assert.JSONEq(t, `{"ok":true}`, string(env.Body))
}

func TestParseEnvelope_NonStringEventIsDropped(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"_event":{"name":"x"},"id":1}`))
	require.NoError(t, err)
	assert.Empty(t, env.Event)
	assert.JSONEq(t, `{"id":1}`, string(env.Body))
}

func TestParseEnvelope_Passthrough(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `[1,2,3]`},
		{"array of envelopes", `[{"_event":"x"}]`},
		{"string", `"ok"`},
		{"number", `42`},
		{"null", `null`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.body))
			require.NoError(t, err)
			assert.False(t, env.IsObject())
			assert.Empty(t, env.Event)
			assert.Equal(t, tt.body, string(env.Body))
		})
	}
}

func TestParseEnvelope_Malformed(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"id":`))
	assert.Error(t, err)
}

func TestResult_Decode(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"_event":"Cart.Created","id":"cart_1","total_items":0}`))
	require.NoError(t, err)
	result := newResult(env)

	var cart CartData
	require.NoError(t, result.Decode(&cart))
	assert.Equal(t, "cart_1", cart.ID)
	assert.Equal(t, "Cart.Created", result.Event())

	var raw json.RawMessage
	require.NoError(t, result.Decode(&raw))
	assert.JSONEq(t, `{"id":"cart_1","total_items":0}`, string(raw))

	obj := result.Object()
	require.NotNil(t, obj)
	assert.Equal(t, []string{"id", "total_items"}, obj.Keys())
}

func TestResult_Data(t *testing.T) {
	env, err := ParseEnvelope([]byte(`[1,2,3]`))
	require.NoError(t, err)
	result := newResult(env)

	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, result.Data())
	assert.Nil(t, result.Object())

	empty := newResult(&Envelope{})
	assert.Nil(t, empty.Data())
	assert.Error(t, empty.Decode(&struct{}{}))
}
