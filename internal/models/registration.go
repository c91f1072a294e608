package models

import "time"

// Registration is owned by event CRUD; only the attendance columns are written here
type Registration struct {
	ID         int        `gorm:"primaryKey" json:"id"`
	EventID    int        `gorm:"not null;index" json:"event_id"`
	UserID     int        `gorm:"not null;index" json:"user_id"`
	Attended   bool       `gorm:"not null;default:false" json:"attended"`
	AttendedAt *time.Time `json:"attended_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ScanRequest struct {
	Code string `json:"code" binding:"required"`
}
