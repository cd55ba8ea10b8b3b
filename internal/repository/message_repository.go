package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"cowrite/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateBatch inserts all messages in one transaction. Position is assigned
// from slice order so rows sharing a timestamp keep their generation order.
func (r *MessageRepository) CreateBatch(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	for i := range messages {
		messages[i].Position = i
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&messages).Error
	})
	if err != nil {
		return fmt.Errorf("create messages batch failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByChatID(ctx context.Context, chatID string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Order("position ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("get message failed: %w", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}
