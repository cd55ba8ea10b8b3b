package ai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayDecoder_SplitsAcrossChunks(t *testing.T) {
	var dec ArrayDecoder
	var got []json.RawMessage
	for _, chunk := range []string{`{"suggestions": [ {"a":"x, `, `y]"}`, `, {"a":"}\"q"}`, ` ]}`, `[{"ignored":1}]`} {
		got = append(got, dec.Write(chunk)...)
	}
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"a":"x, y]"}`, string(got[0]))
	assert.JSONEq(t, `{"a":"}\"q"}`, string(got[1]))
}

func TestArrayDecoder_NestedAndScalars(t *testing.T) {
	var dec ArrayDecoder
	got := dec.Write(`[1, {"b":[1,2]}, "s"]`)
	require.Len(t, got, 3)
	assert.Equal(t, "1", string(got[0]))
	assert.JSONEq(t, `{"b":[1,2]}`, string(got[1]))
	assert.Equal(t, `"s"`, string(got[2]))
}

type scriptedGenerator struct {
	chunks []string
}

func (g scriptedGenerator) Stream(ctx context.Context, _ Request, onEvent func(StreamEvent) error) error {
	for _, c := range g.chunks {
		if err := onEvent(StreamEvent{Type: EventTextDelta, Text: c}); err != nil {
			return err
		}
	}
	return onEvent(StreamEvent{Type: EventFinish, FinishReason: "stop"})
}

func (g scriptedGenerator) Complete(context.Context, Request) (string, error) { return "", nil }

func TestStreamObjects_StopsAtLimit(t *testing.T) {
	gen := scriptedGenerator{chunks: []string{`[{"n":1},{"n":2},`, `{"n":3},{"n":4}]`}}
	var got []json.RawMessage
	err := StreamObjects(context.Background(), gen, Request{}, 2, func(obj json.RawMessage) error {
		got = append(got, obj)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
