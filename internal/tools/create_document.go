package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cowrite/internal/document"
	"cowrite/internal/model"
	"cowrite/internal/stream"
)

type createDocumentArgs struct {
	Title string `json:"title" validate:"required"`
	Task  string `json:"task"`
	Chat  string `json:"chat"`
	Kind  string `json:"kind" validate:"required"`
}

type createDocumentTool struct {
	deps   Deps
	userID string
	emit   stream.Emitter
}

func NewCreateDocument(deps Deps, userID string, emit stream.Emitter) Tool {
	return &createDocumentTool{deps: deps, userID: userID, emit: emit}
}

func (t *createDocumentTool) Name() string { return NameCreateDocument }

func (t *createDocumentTool) Description() string {
	return "Create a document for a writing or content creation activity. This tool will call other functions " +
		"that will generate the contents of the document based on the title, task, and the entire chat input."
}

func (t *createDocumentTool) Parameters() json.RawMessage {
	kinds := make([]string, 0, len(document.Kinds()))
	for _, k := range document.Kinds() {
		kinds = append(kinds, fmt.Sprintf("%q", k))
	}
	return json.RawMessage(`{"type":"object","properties":{` +
		`"title":{"type":"string"},` +
		`"task":{"type":"string","description":"Additional task content"},` +
		`"chat":{"type":"string","description":"The full chat input"},` +
		`"kind":{"type":"string","enum":[` + strings.Join(kinds, ",") + `]}},` +
		`"required":["title","task","chat","kind"]}`)
}

func (t *createDocumentTool) Call(ctx context.Context, input string) (string, error) {
	var args createDocumentArgs
	if err := decodeArgs(input, &args); err != nil {
		return "", err
	}
	kind, err := document.ParseKind(args.Kind)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	t.emit.Emit(stream.Event{Type: stream.EventKind, Content: string(kind)})
	t.emit.Emit(stream.Event{Type: stream.EventID, Content: id})
	t.emit.Emit(stream.Event{Type: stream.EventTitle, Content: args.Title})
	t.emit.Emit(stream.Event{Type: stream.EventTask, Content: args.Task})
	t.emit.Emit(stream.Event{Type: stream.EventChat, Content: args.Chat})
	t.emit.Emit(stream.Event{Type: stream.EventClear, Content: ""})

	handler, err := t.deps.Registry.Lookup(kind)
	if err != nil {
		return "", err
	}
	content, err := handler.OnCreate(ctx, document.CreateInput{Title: args.Title, Task: args.Task, Chat: args.Chat}, t.emit)
	if err != nil {
		return "", err
	}

	if err := t.deps.Documents.Create(ctx, &model.Document{
		ID:        id,
		UserID:    t.userID,
		Kind:      string(kind),
		Title:     args.Title,
		Content:   content,
		CreatedAt: t.deps.Now(),
	}); err != nil {
		return "", err
	}

	t.emit.Emit(stream.Event{Type: stream.EventFinish, Content: ""})

	return marshalResult(map[string]string{
		"id":      id,
		"title":   args.Title,
		"kind":    string(kind),
		"content": "A document was created and is now visible to the user.",
	})
}
