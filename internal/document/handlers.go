package document

import (
	"context"
	"fmt"
	"strings"

	"cowrite/internal/ai"
	"cowrite/internal/stream"
)

const (
	textCreatePrompt = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."
	codeCreatePrompt = "You are a code generator that writes self-contained, executable code snippets. " +
		"Each snippet should be complete and runnable on its own, include helpful comments, and avoid external dependencies. " +
		"Output only the code, without markdown fences."
)

// generativeHandler drives one generation per operation and relays the
// produced text as smoothed text-delta events.
type generativeHandler struct {
	kind         Kind
	gen          ai.Generator
	model        string
	createSystem string
}

func NewTextHandler(gen ai.Generator, model string) Handler {
	return &generativeHandler{kind: KindText, gen: gen, model: model, createSystem: textCreatePrompt}
}

func NewCodeHandler(gen ai.Generator, model string) Handler {
	return &generativeHandler{kind: KindCode, gen: gen, model: model, createSystem: codeCreatePrompt}
}

func (h *generativeHandler) Kind() Kind { return h.kind }

func (h *generativeHandler) OnCreate(ctx context.Context, in CreateInput, emit stream.Emitter) (string, error) {
	prompt := fmt.Sprintf("%s\n\n%s\n\n%s", in.Title, in.Task, in.Chat)
	return h.generate(ctx, h.createSystem, prompt, emit)
}

func (h *generativeHandler) OnUpdate(ctx context.Context, in UpdateInput, emit stream.Emitter) (string, error) {
	if in.Document == nil {
		return "", fmt.Errorf("update %s document: missing document", h.kind)
	}
	return h.generate(ctx, UpdatePrompt(in.Document.Content, h.kind), in.Description, emit)
}

func (h *generativeHandler) generate(ctx context.Context, system, prompt string, emit stream.Emitter) (string, error) {
	var draft strings.Builder
	smoother := stream.NewSmoother(deltaSink{emit: emit}, 0)
	err := h.gen.Stream(ctx, ai.Request{
		Model:    h.model,
		System:   system,
		Messages: []ai.ChatMessage{{Role: "user", Content: prompt}},
	}, func(ev ai.StreamEvent) error {
		if ev.Type == ai.EventTextDelta {
			draft.WriteString(ev.Text)
			smoother.Write(ev.Text)
		}
		return nil
	})
	smoother.Flush()
	if err != nil {
		return "", fmt.Errorf("generate %s document failed: %w", h.kind, err)
	}
	return draft.String(), nil
}

// UpdatePrompt is the system prompt used to rewrite existing content.
func UpdatePrompt(current string, kind Kind) string {
	switch kind {
	case KindCode:
		return "Improve the following code snippet based on the given prompt.\n\n" + current
	default:
		return "Improve the following contents of the document based on the given prompt.\n\n" + current
	}
}

type deltaSink struct {
	emit stream.Emitter
}

func (s deltaSink) Text(delta string) {
	s.emit.Emit(stream.Event{Type: stream.EventTextDelta, Content: delta})
}
