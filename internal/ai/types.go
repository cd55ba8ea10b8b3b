package ai

import (
	"context"
	"encoding/json"
)

// ChatMessage is one entry of an OpenAI-style conversation.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition declares a callable tool and its JSON schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

func (d ToolDefinition) MarshalJSON() ([]byte, error) {
	params := d.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return json.Marshal(map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  params,
		},
	})
}

type Request struct {
	Model    string
	System   string
	Messages []ChatMessage
	Tools    []ToolDefinition
	// JSONMode asks the provider for a JSON object response.
	JSONMode bool
}

type EventType int

const (
	EventTextDelta EventType = iota
	EventReasoningDelta
	EventToolCall
	EventFinish
)

// StreamEvent is one item of a streamed generation. Tool calls are delivered
// whole, after their argument fragments have been assembled.
type StreamEvent struct {
	Type         EventType
	Text         string
	ToolCall     *ToolCall
	FinishReason string
}

// Generator is the language-model capability used by the rest of the
// application.
type Generator interface {
	Stream(ctx context.Context, req Request, onEvent func(StreamEvent) error) error
	Complete(ctx context.Context, req Request) (string, error)
}
