package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cowrite/internal/document"
	"cowrite/internal/stream"
)

var ErrDocumentNotFound = errors.New("document not found")

type updateDocumentArgs struct {
	DocumentID  string `json:"documentId" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type updateDocumentTool struct {
	deps Deps
	emit stream.Emitter
}

func NewUpdateDocument(deps Deps, emit stream.Emitter) Tool {
	return &updateDocumentTool{deps: deps, emit: emit}
}

func (t *updateDocumentTool) Name() string { return NameUpdateDocument }

func (t *updateDocumentTool) Description() string {
	return "Update a document with the given description."
}

func (t *updateDocumentTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{` +
		`"documentId":{"type":"string","description":"The ID of the document to update"},` +
		`"description":{"type":"string","description":"The description of changes that need to be made"}},` +
		`"required":["documentId","description"]}`)
}

// Call overwrites the document content. Two updates of the same document in
// one turn are not serialized; the last write wins.
func (t *updateDocumentTool) Call(ctx context.Context, input string) (string, error) {
	var args updateDocumentArgs
	if err := decodeArgs(input, &args); err != nil {
		return "", err
	}

	doc, err := t.deps.Documents.GetByID(ctx, args.DocumentID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, args.DocumentID)
	}
	kind, err := document.ParseKind(doc.Kind)
	if err != nil {
		return "", err
	}
	handler, err := t.deps.Registry.Lookup(kind)
	if err != nil {
		return "", err
	}

	t.emit.Emit(stream.Event{Type: stream.EventClear, Content: doc.Title})

	content, err := handler.OnUpdate(ctx, document.UpdateInput{Document: doc, Description: args.Description}, t.emit)
	if err != nil {
		return "", err
	}
	if err := t.deps.Documents.UpdateContent(ctx, doc.ID, content); err != nil {
		return "", err
	}

	t.emit.Emit(stream.Event{Type: stream.EventFinish, Content: ""})

	return marshalResult(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"content": "The document has been updated successfully.",
	})
}
