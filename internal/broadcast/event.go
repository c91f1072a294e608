package broadcast

import (
	"time"

	"github.com/google/uuid"

	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type EventType string

const (
	EventNominationSubmitted EventType = "nomination_submitted"
	EventNominationModerated EventType = "nomination_moderated"
	EventVoteCountUpdated    EventType = "nomination_vote_count_updated"
	EventWinnerDeclared      EventType = "winner_declared"
	EventResultsReset        EventType = "results_reset"
	EventAttendanceMarked    EventType = "attendance_marked"
)

// Event is what subscribers receive. Data holds one of the payload types
// below for locally published events and raw JSON for relayed ones.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType EventType, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher is the hook the election and attendance services call after a
// write commits. Implementations must not block the caller.
type Publisher interface {
	Publish(evt Event)
}

type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

type NominationSubmitted struct {
	Nomination models.Nomination `json:"nomination"`
}

type NominationModerated struct {
	Nomination models.Nomination `json:"nomination"`
}

type VoteCountUpdated struct {
	NominationID int   `json:"nomination_id"`
	PositionID   int   `json:"position_id"`
	VoteCount    int64 `json:"vote_count"`
}

type WinnerDeclared struct {
	PositionID         int               `json:"position_id"`
	PositionTitle      string            `json:"position_title"`
	HouseID            *int              `json:"house_id,omitempty"`
	WinnerNominationID int               `json:"winner_nomination_id"`
	VoteCount          int64             `json:"vote_count"`
	Winner             models.Nomination `json:"winner"`
}

type ResultsReset struct {
	PositionID int   `json:"position_id"`
	HouseID    *int  `json:"house_id,omitempty"`
	Deleted    int64 `json:"deleted"`
}

type AttendanceMarked struct {
	RegistrationID int       `json:"registration_id"`
	EventID        int       `json:"event_id"`
	AttendedAt     time.Time `json:"attended_at"`
}
