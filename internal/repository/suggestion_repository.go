package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cowrite/internal/model"
)

type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

func (r *SuggestionRepository) CreateBatch(ctx context.Context, suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&suggestions).Error; err != nil {
		return fmt.Errorf("create suggestions batch failed: %w", err)
	}
	return nil
}

func (r *SuggestionRepository) ListByDocumentID(ctx context.Context, documentID string) ([]model.Suggestion, error) {
	var list []model.Suggestion
	if err := r.db.WithContext(ctx).
		Where("document_id = ? AND is_resolved = ?", documentID, false).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list suggestions failed: %w", err)
	}
	return list, nil
}

func (r *SuggestionRepository) GetByID(ctx context.Context, id string) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&suggestion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get suggestion failed: %w", err)
	}
	return &suggestion, nil
}

func (r *SuggestionRepository) MarkResolved(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&model.Suggestion{}).Where("id = ?", id).Update("is_resolved", true).Error; err != nil {
		return fmt.Errorf("resolve suggestion failed: %w", err)
	}
	return nil
}
