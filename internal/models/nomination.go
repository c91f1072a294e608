package models

import "time"

type NominationStatus string

const (
	StatusPending  NominationStatus = "pending"
	StatusApproved NominationStatus = "approved"
	StatusRejected NominationStatus = "rejected"
	StatusWinner   NominationStatus = "winner"
)

type Nomination struct {
	ID         int              `gorm:"primaryKey" json:"id"`
	UserID     int              `gorm:"not null;index" json:"user_id"`
	PositionID int              `gorm:"not null;index" json:"position_id"`
	HouseID    int              `gorm:"not null;index" json:"house_id"`
	Manifesto  string           `gorm:"not null" json:"manifesto"`
	PhotoRef   *string          `json:"photo_ref,omitempty"`
	Status     NominationStatus `gorm:"not null;default:pending;index" json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

type SubmitNominationRequest struct {
	Manifesto string  `json:"manifesto" binding:"required"`
	PhotoRef  *string `json:"photo_ref"`
}

type ModerateNominationRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
}
