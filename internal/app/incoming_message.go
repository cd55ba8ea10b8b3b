package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cowrite/internal/ai"
	"cowrite/internal/model"
)

const (
	InvocationCall   = "call"
	InvocationResult = "result"
)

// ToolInvocation is a tool call as the client renders it. Once State is
// "result", Result holds the tool output.
type ToolInvocation struct {
	State      string          `json:"state"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// IncomingMessage is a message of the client-side conversation. Content is
// accepted either as a plain string or as the part array the history
// endpoint returns; Parts keeps the structured form.
type IncomingMessage struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	Parts           []model.Part     `json:"parts,omitempty"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
}

func (m *IncomingMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID              string           `json:"id"`
		Role            string           `json:"role"`
		Content         json.RawMessage  `json:"content"`
		Parts           []model.Part     `json:"parts"`
		ToolInvocations []ToolInvocation `json:"toolInvocations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Role = raw.Role
	m.Content = ""
	m.Parts = raw.Parts
	m.ToolInvocations = raw.ToolInvocations

	content := bytes.TrimSpace(raw.Content)
	switch {
	case len(content) == 0 || bytes.Equal(content, []byte("null")):
	case content[0] == '"':
		if err := json.Unmarshal(content, &m.Content); err != nil {
			return err
		}
	case content[0] == '[':
		var parts []model.Part
		if err := json.Unmarshal(content, &parts); err != nil {
			return fmt.Errorf("message %s content: %w", raw.ID, err)
		}
		m.Parts = append(parts, m.Parts...)
	default:
		return fmt.Errorf("message %s content: expected string or part array", raw.ID)
	}
	if m.Content == "" {
		m.Content = partsText(m.Parts)
	}
	return nil
}

func partsText(parts []model.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Type == model.PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// toAIMessages rebuilds the provider conversation, tool calls and tool
// results included. A call without a result, or a result without a call,
// is dropped since providers reject unpaired tool messages.
func toAIMessages(messages []IncomingMessage) []ai.ChatMessage {
	called := map[string]bool{}
	answered := map[string]bool{}
	for _, m := range messages {
		for _, p := range m.Parts {
			switch p.Type {
			case model.PartToolCall:
				called[p.ToolCallID] = true
			case model.PartToolResult:
				answered[p.ToolCallID] = true
			}
		}
		for _, inv := range m.ToolInvocations {
			called[inv.ToolCallID] = true
			if inv.State == InvocationResult {
				answered[inv.ToolCallID] = true
			}
		}
	}
	paired := func(id string) bool { return id != "" && called[id] && answered[id] }

	out := make([]ai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleUser, model.RoleSystem:
			out = append(out, ai.ChatMessage{Role: m.Role, Content: m.Content})

		case model.RoleAssistant:
			msg := ai.ChatMessage{Role: model.RoleAssistant, Content: m.Content}
			var results []ai.ChatMessage
			for _, p := range m.Parts {
				switch {
				case p.Type == model.PartToolCall && paired(p.ToolCallID):
					msg.ToolCalls = append(msg.ToolCalls, toolCall(p.ToolCallID, p.ToolName, p.Args))
				case p.Type == model.PartToolResult && paired(p.ToolCallID):
					results = append(results, toolMessage(p.ToolCallID, p.Result))
				}
			}
			for _, inv := range m.ToolInvocations {
				if inv.State != InvocationResult || !paired(inv.ToolCallID) {
					continue
				}
				msg.ToolCalls = append(msg.ToolCalls, toolCall(inv.ToolCallID, inv.ToolName, inv.Args))
				results = append(results, toolMessage(inv.ToolCallID, inv.Result))
			}
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, msg)
			out = append(out, results...)

		case model.RoleTool:
			for _, p := range m.Parts {
				if p.Type == model.PartToolResult && paired(p.ToolCallID) {
					out = append(out, toolMessage(p.ToolCallID, p.Result))
				}
			}
		}
	}
	return out
}

func toolCall(id, name string, args json.RawMessage) ai.ToolCall {
	arguments := "{}"
	if len(args) > 0 && json.Valid(args) {
		arguments = string(args)
	}
	return ai.ToolCall{ID: id, Type: "function", Function: ai.FunctionCall{Name: name, Arguments: arguments}}
}

func toolMessage(id string, result json.RawMessage) ai.ChatMessage {
	content := "null"
	if len(result) > 0 {
		content = string(result)
	}
	return ai.ChatMessage{Role: model.RoleTool, ToolCallID: id, Content: content}
}
