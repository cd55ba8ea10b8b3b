package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

const (
	PartText       = "text"
	PartReasoning  = "reasoning"
	PartToolCall   = "tool-call"
	PartToolResult = "tool-result"
)

// Message is append-only. Content holds either a JSON string or a JSON array
// of Parts. Position orders messages saved in the same batch.
type Message struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string         `gorm:"size:36;not null;index:idx_message_chat_order,priority:1" json:"chatId"`
	Role      string         `gorm:"size:16;not null" json:"role"`
	Content   datatypes.JSON `gorm:"not null" json:"content"`
	Position  int            `gorm:"not null;default:0;index:idx_message_chat_order,priority:3" json:"-"`
	CreatedAt time.Time      `gorm:"index:idx_message_chat_order,priority:2" json:"createdAt"`
}

// Part is one element of a structured assistant or tool message.
type Part struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

func TextContent(text string) datatypes.JSON {
	raw, _ := json.Marshal(text)
	return datatypes.JSON(raw)
}

func PartsContent(parts []Part) datatypes.JSON {
	raw, _ := json.Marshal(parts)
	return datatypes.JSON(raw)
}

// Text returns the plain text of the message: the string content, or the
// concatenation of its text parts.
func (m *Message) Text() string {
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	var parts []Part
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return ""
	}
	var out string
	for _, p := range parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// MessageBatch is the unit handed to asynchronous persistence: every message
// produced by one turn, in generation order.
type MessageBatch struct {
	ChatID   string    `json:"chatId"`
	Messages []Message `json:"messages"`
}
