package sdk

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePayload(t *testing.T, input any) *Payload {
	t.Helper()
	out, err := Encode(input)
	require.NoError(t, err)
	payload, ok := out.(*Payload)
	require.True(t, ok, "expected *Payload, got %T", out)
	return payload
}

func TestEncode_FlatInput(t *testing.T) {
	payload := encodePayload(t, map[string]any{
		"id":       "prod_123",
		"quantity": 2,
		"gift":     true,
	})

	assert.Equal(t, 3, payload.Len())
	assert.Equal(t, map[string]any{
		"id":       "prod_123",
		"quantity": 2,
		"gift":     true,
	}, payload.Map())
}

func TestEncode_Nesting(t *testing.T) {
	payload := encodePayload(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": 2},
		},
	})

	assert.Equal(t, map[string]any{
		"a[b]":    1,
		"a[c][d]": 2,
	}, payload.Map())

	for _, pair := range payload.Pairs() {
		assert.Equal(t, shapeScalar, shapeOf(pair.Value), "pair %q holds a composite", pair.Key)
	}
}

func TestEncode_ScalarPassthrough(t *testing.T) {
	reader := strings.NewReader("blob")
	tests := []struct {
		name  string
		input any
	}{
		{"string", "hello"},
		{"int", 42},
		{"float", 4.2},
		{"bool", false},
		{"nil", nil},
		{"bytes", []byte("raw")},
		{"reader", reader},
		{"time", time.Unix(0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input, out)
		})
	}
}

func TestEncode_EmptyComposite(t *testing.T) {
	payload := encodePayload(t, map[string]any{})
	assert.Equal(t, 0, payload.Len())

	payload = encodePayload(t, []any{})
	assert.Equal(t, 0, payload.Len())
}

func TestEncode_ArraysFlattenLikeObjects(t *testing.T) {
	payload := encodePayload(t, map[string]any{
		"tags": []string{"red", "blue"},
		"lines": []any{
			map[string]any{"id": "item_1", "quantity": 1},
		},
	})

	assert.Equal(t, map[string]any{
		"lines[0][id]":       "item_1",
		"lines[0][quantity]": 1,
		"tags[0]":            "red",
		"tags[1]":            "blue",
	}, payload.Map())
}

func TestEncode_ObjectKeepsInsertionOrder(t *testing.T) {
	data := NewObject().
		Set("zeta", 1).
		Set("alpha", NewObject().Set("y", "first").Set("x", "second")).
		Set("mid", "m")

	payload := encodePayload(t, data)

	keys := make([]string, 0, payload.Len())
	for _, pair := range payload.Pairs() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha[y]", "alpha[x]", "mid"}, keys)
}

func TestEncode_PlainMapsAreSorted(t *testing.T) {
	payload := encodePayload(t, map[string]any{"b": 1, "a": 2, "c": 3})

	keys := make([]string, 0, 3)
	for _, pair := range payload.Pairs() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestEncode_Struct(t *testing.T) {
	type shipping struct {
		Country string `json:"country"`
		Region  string `json:"county_state,omitempty"`
	}
	type checkout struct {
		Email    string   `json:"email"`
		Shipping shipping `json:"shipping"`
		Note     string   `json:"note,omitempty"`
	}

	payload := encodePayload(t, checkout{
		Email:    "shopper@example.com",
		Shipping: shipping{Country: "US"},
	})

	assert.Equal(t, []Pair{
		{Key: "email", Value: "shopper@example.com"},
		{Key: "shipping[country]", Value: "US"},
	}, payload.Pairs())
}

func TestPayload_WriteMultipart(t *testing.T) {
	payload := encodePayload(t, NewObject().
		Set("id", "prod_123").
		Set("quantity", 2).
		Set("options", map[string]any{"vgrp_1": "optn_1"}).
		Set("note", nil).
		Set("attachment", File{Name: "a.txt", ContentType: "text/plain", Reader: strings.NewReader("hi")}))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, payload.WriteMultipart(w))
	require.NoError(t, w.Close())

	r := multipart.NewReader(&buf, w.Boundary())
	got := map[string]string{}
	files := map[string]string{}
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		got[part.FormName()] = string(data)
		if part.FileName() != "" {
			files[part.FormName()] = part.FileName()
		}
	}

	assert.Equal(t, map[string]string{
		"id":              "prod_123",
		"quantity":        "2",
		"options[vgrp_1]": "optn_1",
		"note":            "",
		"attachment":      "hi",
	}, got)
	assert.Equal(t, map[string]string{"attachment": "a.txt"}, files)
}

func TestPayload_WriteMultipartRejectsUnknownValues(t *testing.T) {
	payload := &Payload{}
	payload.Add("ch", make(chan int))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	err := payload.WriteMultipart(w)
	assert.ErrorContains(t, err, `field "ch"`)
}
