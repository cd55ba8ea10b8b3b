package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cowrite/internal/model"
)

func TestIncomingMessage_AcceptsStringAndPartContent(t *testing.T) {
	var msgs []IncomingMessage
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"u1","role":"user","content":"hi"},
		{"id":"a1","role":"assistant","content":[{"type":"text","text":"Sure."},{"type":"tool-call","toolCallId":"c1","toolName":"createDocument","args":{"title":"Essay"}}]}
	]`), &msgs))

	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "Sure.", msgs[1].Content)
	require.Len(t, msgs[1].Parts, 2)
	assert.Equal(t, "c1", msgs[1].Parts[1].ToolCallID)

	var bad IncomingMessage
	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &bad))
}

func TestToAIMessages_KeepsToolInvocations(t *testing.T) {
	var msgs []IncomingMessage
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"u1","role":"user","content":"write an essay"},
		{"id":"a1","role":"assistant","content":"","toolInvocations":[
			{"state":"result","toolCallId":"c1","toolName":"createDocument","args":{"title":"Essay","kind":"text"},"result":{"id":"doc-42","title":"Essay"}},
			{"state":"call","toolCallId":"c2","toolName":"getWeather","args":{}}
		]},
		{"id":"u2","role":"user","content":"add suggestions"}
	]`), &msgs))

	out := toAIMessages(msgs)
	require.Len(t, out, 4)
	assert.Equal(t, model.RoleUser, out[0].Role)

	assert.Equal(t, model.RoleAssistant, out[1].Role)
	require.Len(t, out[1].ToolCalls, 1)
	assert.Equal(t, "c1", out[1].ToolCalls[0].ID)
	assert.JSONEq(t, `{"title":"Essay","kind":"text"}`, out[1].ToolCalls[0].Function.Arguments)

	assert.Equal(t, model.RoleTool, out[2].Role)
	assert.Equal(t, "c1", out[2].ToolCallID)
	assert.Contains(t, out[2].Content, "doc-42")

	assert.Equal(t, "add suggestions", out[3].Content)
}

func TestToAIMessages_DropsUnpairedToolParts(t *testing.T) {
	msgs := []IncomingMessage{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Parts: []model.Part{{Type: model.PartToolCall, ToolCallID: "lost", ToolName: "getWeather"}}},
		{Role: model.RoleTool, Parts: []model.Part{{Type: model.PartToolResult, ToolCallID: "orphan", Result: json.RawMessage(`{}`)}}},
	}

	out := toAIMessages(msgs)
	require.Len(t, out, 1)
	assert.Equal(t, model.RoleUser, out[0].Role)
}
