package tools

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"cowrite/internal/ai"
	"cowrite/internal/model"
	"cowrite/internal/stream"
)

// MaxSuggestions caps the suggestions produced by one invocation.
const MaxSuggestions = 5

const suggestionsPrompt = "You are a help writing assistant. Given a piece of writing, please offer suggestions to improve the piece of writing " +
	"and describe the change. It is very important for the edits to contain full sentences instead of just words. Max 5 suggestions. " +
	`Respond with a JSON object of the form {"suggestions":[{"originalSentence":"...","suggestedSentence":"...","description":"..."}]}. ` +
	"originalSentence must be copied verbatim from the writing."

type requestSuggestionsArgs struct {
	DocumentID string `json:"documentId" validate:"required"`
}

type generatedSuggestion struct {
	OriginalSentence  string `json:"originalSentence" validate:"required"`
	SuggestedSentence string `json:"suggestedSentence" validate:"required"`
	Description       string `json:"description"`
}

// SuggestionEvent is the content of a `suggestion` data event.
type SuggestionEvent struct {
	ID            string `json:"id"`
	DocumentID    string `json:"documentId"`
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
	Description   string `json:"description"`
	IsResolved    bool   `json:"isResolved"`
}

type requestSuggestionsTool struct {
	deps   Deps
	userID string
	emit   stream.Emitter
}

func NewRequestSuggestions(deps Deps, userID string, emit stream.Emitter) Tool {
	return &requestSuggestionsTool{deps: deps, userID: userID, emit: emit}
}

func (t *requestSuggestionsTool) Name() string { return NameRequestSuggestions }

func (t *requestSuggestionsTool) Description() string {
	return "Request suggestions for a document"
}

func (t *requestSuggestionsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{` +
		`"documentId":{"type":"string","description":"The ID of the document to request edits"}},` +
		`"required":["documentId"]}`)
}

func (t *requestSuggestionsTool) Call(ctx context.Context, input string) (string, error) {
	var args requestSuggestionsArgs
	if err := decodeArgs(input, &args); err != nil {
		return "", err
	}

	doc, err := t.deps.Documents.GetByID(ctx, args.DocumentID)
	if err != nil {
		return "", err
	}
	if doc == nil || doc.Content == "" {
		return marshalResult(map[string]string{"error": "Document not found"})
	}

	var produced []model.Suggestion
	err = ai.StreamObjects(ctx, t.deps.Generator, ai.Request{
		Model:    t.deps.BlockModel,
		System:   suggestionsPrompt,
		Messages: []ai.ChatMessage{{Role: "user", Content: doc.Content}},
		JSONMode: true,
	}, MaxSuggestions, func(raw json.RawMessage) error {
		var item generatedSuggestion
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil
		}
		if err := validate.Struct(&item); err != nil {
			return nil
		}

		ev := SuggestionEvent{
			ID:            uuid.NewString(),
			DocumentID:    doc.ID,
			OriginalText:  item.OriginalSentence,
			SuggestedText: item.SuggestedSentence,
			Description:   item.Description,
		}
		t.emit.Emit(stream.Event{Type: stream.EventSuggestion, Content: ev})

		produced = append(produced, model.Suggestion{
			ID:                ev.ID,
			DocumentID:        doc.ID,
			DocumentCreatedAt: doc.CreatedAt,
			OriginalText:      ev.OriginalText,
			SuggestedText:     ev.SuggestedText,
			Description:       ev.Description,
			UserID:            t.userID,
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	if t.userID != "" && len(produced) > 0 {
		now := t.deps.Now()
		for i := range produced {
			produced[i].CreatedAt = now
		}
		if err := t.deps.Suggestions.CreateBatch(ctx, produced); err != nil {
			return "", err
		}
	}

	return marshalResult(map[string]string{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "Suggestions have been added to the document",
	})
}
