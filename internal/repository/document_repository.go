package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cowrite/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// UpdateContent overwrites the document content. Last write wins.
func (r *DocumentRepository) UpdateContent(ctx context.Context, id, content string) error {
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Update("content", content).Error; err != nil {
		return fmt.Errorf("update document content failed: %w", err)
	}
	return nil
}
