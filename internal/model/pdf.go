package model

import "time"

// PDF is the single PDF reference attached to a chat.
type PDF struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID    string    `gorm:"size:36;not null;uniqueIndex" json:"chatId"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
