package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"cowrite/internal/document"
	"cowrite/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	UpdateContent(ctx context.Context, id, content string) error
}

type DocumentService struct {
	documents DocumentStore
	now       func() time.Time
}

type SaveDocumentInput struct {
	ID      string
	Title   string
	Kind    string
	Content string
}

func NewDocumentService(documents DocumentStore) *DocumentService {
	return &DocumentService{documents: documents, now: time.Now}
}

func (s *DocumentService) Get(ctx context.Context, userID, id string) (*model.Document, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if doc.UserID != userID {
		return nil, ErrForbidden
	}
	return doc, nil
}

// Save overwrites the content of an existing document, or creates it when
// the id is new. Concurrent saves are not coordinated: the last one wins.
func (s *DocumentService) Save(ctx context.Context, userID string, in SaveDocumentInput) (*model.Document, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, ErrInvalidInput
	}

	doc, err := s.documents.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		if doc.UserID != userID {
			return nil, ErrForbidden
		}
		if err := s.documents.UpdateContent(ctx, doc.ID, in.Content); err != nil {
			return nil, err
		}
		doc.Content = in.Content
		return doc, nil
	}

	kind := document.KindText
	if in.Kind != "" {
		if kind, err = document.ParseKind(in.Kind); err != nil {
			return nil, ErrInvalidInput
		}
	}
	doc = &model.Document{
		ID:        in.ID,
		UserID:    userID,
		Kind:      string(kind),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		CreatedAt: s.now(),
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
