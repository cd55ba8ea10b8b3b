package model

import "time"

const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

type Chat struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:64;not null;index" json:"userId"`
	Title      string    `gorm:"size:256;not null" json:"title"`
	Visibility string    `gorm:"size:16;not null;default:private" json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
}
