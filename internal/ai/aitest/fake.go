// Package aitest provides a scripted ai.Generator for tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"cowrite/internal/ai"
)

// Fake replays one scripted event list per Stream call, in order. When the
// script is exhausted it answers with a plain "ok" and a stop finish.
type Fake struct {
	mu sync.Mutex

	Steps      [][]ai.StreamEvent
	CompleteFn func(req ai.Request) (string, error)
	StreamErr  error
	// Block makes Stream wait for context cancellation before replaying.
	Block bool

	Requests []ai.Request
	calls    int
}

var _ ai.Generator = (*Fake)(nil)

func (f *Fake) Stream(ctx context.Context, req ai.Request, onEvent func(ai.StreamEvent) error) error {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	var events []ai.StreamEvent
	if f.calls < len(f.Steps) {
		events = f.Steps[f.calls]
	} else {
		events = Text("ok")
	}
	f.calls++
	streamErr := f.StreamErr
	block := f.Block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if streamErr != nil {
		return streamErr
	}
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) Complete(_ context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	fn := f.CompleteFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return "A title", nil
}

// Calls reports how many Stream calls have been made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Text scripts a text answer split on spaces, followed by a stop finish.
func Text(s string) []ai.StreamEvent {
	var events []ai.StreamEvent
	for _, word := range strings.SplitAfter(s, " ") {
		if word != "" {
			events = append(events, ai.StreamEvent{Type: ai.EventTextDelta, Text: word})
		}
	}
	return append(events, ai.StreamEvent{Type: ai.EventFinish, FinishReason: "stop"})
}

// ToolCall scripts a single tool call followed by a tool_calls finish.
func ToolCall(id, name, args string) []ai.StreamEvent {
	return []ai.StreamEvent{
		{Type: ai.EventToolCall, ToolCall: &ai.ToolCall{ID: id, Type: "function", Function: ai.FunctionCall{Name: name, Arguments: args}}},
		{Type: ai.EventFinish, FinishReason: "tool_calls"},
	}
}
