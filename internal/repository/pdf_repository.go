package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cowrite/internal/model"
)

type PDFRepository struct {
	db *gorm.DB
}

func NewPDFRepository(db *gorm.DB) *PDFRepository {
	return &PDFRepository{db: db}
}

func (r *PDFRepository) GetByChatID(ctx context.Context, chatID string) (*model.PDF, error) {
	var pdf model.PDF
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&pdf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pdf failed: %w", err)
	}
	return &pdf, nil
}

func (r *PDFRepository) Create(ctx context.Context, pdf *model.PDF) error {
	if err := r.db.WithContext(ctx).Create(pdf).Error; err != nil {
		return fmt.Errorf("create pdf failed: %w", err)
	}
	return nil
}

// Update rewrites the url of an existing reference and reports whether a row
// with that id existed.
func (r *PDFRepository) Update(ctx context.Context, pdf *model.PDF) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PDF{}).
		Where("id = ?", pdf.ID).
		Updates(map[string]interface{}{"url": pdf.URL, "chat_id": pdf.ChatID})
	if result.Error != nil {
		return false, fmt.Errorf("update pdf failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
