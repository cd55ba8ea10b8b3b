package app

import (
	"context"
	"errors"
	"time"

	"cowrite/internal/document"
	"cowrite/internal/editor"
	"cowrite/internal/model"
	"cowrite/internal/pkg/logger"
)

var ErrSuggestionNotFound = errors.New("suggestion not found")

type SuggestionStore interface {
	ListByDocumentID(ctx context.Context, documentID string) ([]model.Suggestion, error)
	GetByID(ctx context.Context, id string) (*model.Suggestion, error)
	MarkResolved(ctx context.Context, id string) error
}

type SuggestionService struct {
	documents   *DocumentService
	store       DocumentStore
	suggestions SuggestionStore
	log         *logger.Logger
}

func NewSuggestionService(documents DocumentStore, suggestions SuggestionStore, log *logger.Logger) *SuggestionService {
	if log == nil {
		log = logger.Nop()
	}
	return &SuggestionService{
		documents:   NewDocumentService(documents),
		store:       documents,
		suggestions: suggestions,
		log:         log.With("component", "SuggestionService"),
	}
}

// List returns the unresolved suggestions of a document anchored against its
// current content.
func (s *SuggestionService) List(ctx context.Context, userID, documentID string) ([]editor.UISuggestion, error) {
	doc, err := s.documents.Get(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	list, err := s.suggestions.ListByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return editor.Project(kindOf(doc), doc.Content, list), nil
}

// Accept applies the suggestion to its document and returns the new document.
func (s *SuggestionService) Accept(ctx context.Context, userID, suggestionID string) (*model.Document, error) {
	return s.resolve(ctx, userID, suggestionID, true)
}

// Decline retires the suggestion; the document is returned unchanged.
func (s *SuggestionService) Decline(ctx context.Context, userID, suggestionID string) (*model.Document, error) {
	return s.resolve(ctx, userID, suggestionID, false)
}

func (s *SuggestionService) resolve(ctx context.Context, userID, suggestionID string, accept bool) (*model.Document, error) {
	suggestion, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion == nil || suggestion.IsResolved {
		return nil, ErrSuggestionNotFound
	}
	doc, err := s.documents.Get(ctx, userID, suggestion.DocumentID)
	if err != nil {
		return nil, err
	}
	pending, err := s.suggestions.ListByDocumentID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	background := context.WithoutCancel(ctx)
	ed := editor.New(kindOf(doc), doc.Content, editor.Options{
		Debounce: time.Second,
		OnSave: func(content string) error {
			return s.store.UpdateContent(ctx, doc.ID, content)
		},
		OnResolve: func(id string, _ bool) {
			if err := s.suggestions.MarkResolved(background, id); err != nil {
				s.log.Error("mark suggestion resolved failed", "suggestion_id", id, "error", err)
			}
		},
	})
	ed.SetSuggestions(pending)

	if accept {
		err = ed.Accept(suggestionID)
	} else {
		err = ed.Decline(suggestionID)
	}
	if errors.Is(err, editor.ErrSuggestionNotFound) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Content = ed.Content()
	return doc, nil
}

func kindOf(doc *model.Document) document.Kind {
	kind, err := document.ParseKind(doc.Kind)
	if err != nil {
		return document.KindText
	}
	return kind
}
