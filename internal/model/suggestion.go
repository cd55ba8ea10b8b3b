package model

import "time"

type Suggestion struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	DocumentID        string    `gorm:"size:36;not null;index" json:"documentId"`
	DocumentCreatedAt time.Time `gorm:"not null" json:"documentCreatedAt"`
	OriginalText      string    `gorm:"type:text;not null" json:"originalText"`
	SuggestedText     string    `gorm:"type:text;not null" json:"suggestedText"`
	Description       string    `gorm:"type:text" json:"description"`
	IsResolved        bool      `gorm:"not null;default:false" json:"isResolved"`
	UserID            string    `gorm:"size:64;not null" json:"userId"`
	CreatedAt         time.Time `json:"createdAt"`
}
