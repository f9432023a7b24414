package model

import "time"

// Analysis is a single submitted photo. Rows are written once and never updated
type Analysis struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"size:36;not null;index" json:"user_id"`
	ImagePath  string    `gorm:"not null" json:"image_path"` // Public path the blob is served under, e.g. /uploads/<key>
	Comment    string    `json:"comment"`
	Rating     int       `gorm:"not null" json:"rating"`
	AIResponse string    `gorm:"not null" json:"ai_response"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}
