package models

import "time"

// Vote model - one voter's choice for a position. The composite unique index
// is what makes casting exactly-once.
type Vote struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	VoterUserID  int       `gorm:"not null;uniqueIndex:idx_votes_voter_position" json:"voter_user_id"`
	PositionID   int       `gorm:"not null;uniqueIndex:idx_votes_voter_position;index" json:"position_id"`
	NominationID int       `gorm:"not null;index" json:"nomination_id"`
	HouseID      int       `gorm:"not null;index" json:"house_id"` // nominee's house, copied at cast time
	CastAt       time.Time `gorm:"not null" json:"cast_at"`
}

type CastVoteRequest struct {
	NominationID int `json:"nomination_id" binding:"required"`
}
