package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ld"
)

func TestCodec_ResponseWithNestedResources(t *testing.T) {
	resources := []ld.Resource{
		{
			ID:    "http://example.org/foo",
			Type:  "http://example.org/Bar",
			Title: "Foo",
			Attributes: []ld.Attribute{
				{Key: ld.DCTitle, Label: "dc:title", Value: "Foo", Type: ld.Literal},
				{Key: "http://example.org/knows", Label: "ex:knows", Value: "_:b0", Type: ld.BlankNode},
			},
		},
		{ID: "_:b0", Attributes: []ld.Attribute{}},
	}
	resp := ld.Succeeded(ld.Fetch(), ld.ResourcesResult(resources), "")

	data, err := EncodeResponse(resp)
	require.NoError(t, err)
	frame, err := Decode(data)
	require.NoError(t, err)

	require.Equal(t, FrameResponse, frame.Type)
	require.NotNil(t, frame.Response)
	assert.True(t, frame.Response.Command.Same(resp.Command))
	assert.Equal(t, resp.Result, frame.Response.Result)
}

func TestCodec_EmptyResultsStayEmpty(t *testing.T) {
	for name, result := range map[string]*ld.Result{
		"resources": ld.ResourcesResult(nil),
		"types":     ld.TypesResult(nil),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := EncodeResponse(ld.Succeeded(ld.Fetch(name), result, ""))
			require.NoError(t, err)
			frame, err := Decode(data)
			require.NoError(t, err)

			got := frame.Response.Result
			require.NotNil(t, got)
			assert.Equal(t, result.Kind, got.Kind)
			assert.Equal(t, result, got)
		})
	}
}

func TestCodec_CommandArgumentsNormalised(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"command","command":{"kind":1,"arguments":null}}`))
	require.NoError(t, err)
	assert.Equal(t, ld.KindFetch, frame.Command.Kind)
	assert.NotNil(t, frame.Command.Arguments)
	assert.Empty(t, frame.Command.Arguments)
}

func TestCodec_ErrorFrame(t *testing.T) {
	frame, err := Decode(EncodeError("rate limited"))
	require.NoError(t, err)
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, "rate limited", frame.Error)
	assert.Nil(t, frame.Response)
}

func TestCodec_InvalidFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"type":`},
		{"unknown type", `{"type":"event"}`},
		{"command without payload", `{"type":"command"}`},
		{"response without payload", `{"type":"response"}`},
		{"bad result kind", `{"type":"response","response":{"command":{"kind":1,"arguments":[]},"success":true,"result":{"kind":"nodes"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidFrame(err), "got %v", err)
		})
	}
}
