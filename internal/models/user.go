package models

import "time"

// User represents a registered journal owner.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`

	// Deleting a user deletes every entry it owns.
	Entries []Entry `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
