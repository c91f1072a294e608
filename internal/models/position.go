package models

import "time"

type Position struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	HouseID   *int      `gorm:"index" json:"house_id,omitempty"`
	IsGlobal  bool      `gorm:"not null;default:false" json:"is_global"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenTo reports whether a member of houseID may stand or vote for this position
func (p Position) OpenTo(houseID *int) bool {
	if p.IsGlobal || p.HouseID == nil {
		return true
	}
	return houseID != nil && *houseID == *p.HouseID
}

type CreatePositionRequest struct {
	Title    string `json:"title" binding:"required"`
	HouseID  *int   `json:"house_id"`
	IsGlobal bool   `json:"is_global"`
}

type UpdatePositionRequest struct {
	Title string `json:"title" binding:"required"`
}
