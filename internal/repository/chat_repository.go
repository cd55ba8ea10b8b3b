package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cowrite/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, chat *model.Chat) error {
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) ListByUserID(ctx context.Context, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

func (r *ChatRepository) UpdateVisibility(ctx context.Context, id, visibility string) error {
	if err := r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", id).Update("visibility", visibility).Error; err != nil {
		return fmt.Errorf("update chat visibility failed: %w", err)
	}
	return nil
}

// DeleteByID removes the chat together with everything it owns: messages,
// votes and its PDF reference.
func (r *ChatRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", id).Delete(&model.PDF{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Chat{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete chat failed: %w", err)
	}
	return nil
}
