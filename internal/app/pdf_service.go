package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cowrite/internal/model"
)

var ErrPDFNotFound = errors.New("pdf not found")

type PDFStore interface {
	GetByChatID(ctx context.Context, chatID string) (*model.PDF, error)
	Create(ctx context.Context, pdf *model.PDF) error
	Update(ctx context.Context, pdf *model.PDF) (bool, error)
}

// PDFService keeps at most one PDF reference per chat.
type PDFService struct {
	pdfs PDFStore
	now  func() time.Time
}

func NewPDFService(pdfs PDFStore) *PDFService {
	return &PDFService{pdfs: pdfs, now: time.Now}
}

// Get returns the chat's PDF, or nil when none has been saved.
func (s *PDFService) Get(ctx context.Context, chatID string) (*model.PDF, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrInvalidInput
	}
	return s.pdfs.GetByChatID(ctx, chatID)
}

// Save attaches url to the chat. A chat that already has a PDF keeps its id
// and gets the new url.
func (s *PDFService) Save(ctx context.Context, chatID, url string) (string, error) {
	if strings.TrimSpace(chatID) == "" || strings.TrimSpace(url) == "" {
		return "", ErrInvalidInput
	}

	existing, err := s.pdfs.GetByChatID(ctx, chatID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		existing.URL = url
		if _, err := s.pdfs.Update(ctx, existing); err != nil {
			return "", err
		}
		return existing.ID, nil
	}

	now := s.now()
	pdf := &model.PDF{ID: uuid.NewString(), ChatID: chatID, URL: url, CreatedAt: now, UpdatedAt: now}
	if err := s.pdfs.Create(ctx, pdf); err != nil {
		return "", err
	}
	return pdf.ID, nil
}

// Update rewrites the PDF with the given id.
func (s *PDFService) Update(ctx context.Context, id, chatID, url string) (string, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(chatID) == "" || strings.TrimSpace(url) == "" {
		return "", ErrInvalidInput
	}
	ok, err := s.pdfs.Update(ctx, &model.PDF{ID: id, ChatID: chatID, URL: url})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrPDFNotFound
	}
	return id, nil
}
