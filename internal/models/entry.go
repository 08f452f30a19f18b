package models

import "time"

// Entry is a single journal record tied to a calendar date.
//
// EntryType is an open set of string tags (text, image, voice, video, task,
// gratitude, ...); the application does not enforce an enumeration.
// EntryDate is the logical diary date in YYYY-MM-DD form, independent of
// CreatedAt; storing it as an ISO string keeps date comparisons portable
// across sqlite and postgres.
type Entry struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;index"`
	EntryType   string    `json:"entry_type" gorm:"type:varchar(50);not null"`
	Content     *string   `json:"content"`
	MediaBase64 *string   `json:"media_base64"`
	MediaMime   *string   `json:"media_mime" gorm:"type:varchar(100)"`
	IsCompleted bool      `json:"is_completed" gorm:"default:false"`
	Mood        *string   `json:"mood" gorm:"type:varchar(50)"`
	EntryDate   string    `json:"entry_date" gorm:"type:varchar(10);not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
