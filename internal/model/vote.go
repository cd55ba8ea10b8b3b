package model

type Vote struct {
	ChatID    string `gorm:"primaryKey;size:36" json:"chatId"`
	MessageID string `gorm:"primaryKey;size:36" json:"messageId"`
	IsUpvoted bool   `gorm:"not null" json:"isUpvoted"`
}
