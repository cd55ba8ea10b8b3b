package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Chat{}, &Message{}, &Document{}, &Suggestion{}, &PDF{}, &Vote{},
	}
}
