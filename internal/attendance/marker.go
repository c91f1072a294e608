// Package attendance marks event registrations as attended from QR scans.
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/metrics"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type MarkResult struct {
	RegistrationID int        `json:"registration_id"`
	Marked         bool       `json:"marked"`
	Already        bool       `json:"already,omitempty"`
	AttendedAt     *time.Time `json:"attended_at,omitempty"`
}

type Stats struct {
	EventID    int   `json:"event_id"`
	Registered int64 `json:"registered"`
	Attended   int64 `json:"attended"`
}

type Marker struct {
	db        *gorm.DB
	codec     *Codec
	publisher broadcast.Publisher
	metrics   *metrics.Metrics
	logger    *logrus.Entry
	now       func() time.Time
}

type Option func(*Marker)

func WithClock(now func() time.Time) Option {
	return func(m *Marker) {
		m.now = now
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(m *Marker) {
		m.logger = logger.WithField("component", "attendance")
	}
}

func NewMarker(db *gorm.DB, codec *Codec, publisher broadcast.Publisher, m *metrics.Metrics, opts ...Option) *Marker {
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	if m == nil {
		m = metrics.New(nil)
	}

	mk := &Marker{
		db:        db,
		codec:     codec,
		publisher: publisher,
		metrics:   m,
		logger:    logrus.StandardLogger().WithField("component", "attendance"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(mk)
	}
	return mk
}

// MarkAttended flips attended from false to true with one conditional
// UPDATE. Exactly one caller observes Marked; every other call for the same
// registration gets Already with the original timestamp.
func (m *Marker) MarkAttended(ctx context.Context, registrationID int) (*MarkResult, error) {
	now := m.now().UTC()
	result := &MarkResult{RegistrationID: registrationID}

	err := database.Retry(ctx, func() error {
		res := m.db.WithContext(ctx).Model(&models.Registration{}).
			Where("id = ? AND attended = ?", registrationID, false).
			Updates(map[string]any{"attended": true, "attended_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			result.Marked = true
			result.AttendedAt = &now
			return nil
		}

		var reg models.Registration
		err := m.db.WithContext(ctx).First(&reg, registrationID).Error
		if database.IsNotFound(err) {
			return fmt.Errorf("%w: registration %d", apperrors.ErrNotFound, registrationID)
		}
		if err != nil {
			return err
		}
		result.Already = true
		result.AttendedAt = reg.AttendedAt
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("error marking attendance: %w", err)
	}

	if !result.Marked {
		m.metrics.AttendanceMarks.WithLabelValues(string(apperrors.KindAlreadyMarked)).Inc()
		return result, nil
	}

	m.metrics.AttendanceMarks.WithLabelValues("marked").Inc()
	m.logger.WithField("registration_id", registrationID).Info("attendance marked")
	m.announce(ctx, registrationID, now)
	return result, nil
}

// announce looks up the event for the broadcast payload; the mark has
// already committed, so failures here are only logged.
func (m *Marker) announce(ctx context.Context, registrationID int, at time.Time) {
	var reg models.Registration
	if err := m.db.WithContext(ctx).Select("id", "event_id").First(&reg, registrationID).Error; err != nil {
		m.logger.WithError(err).WithField("registration_id", registrationID).Warn("error loading registration for broadcast")
		return
	}
	m.publisher.Publish(broadcast.NewEvent(broadcast.EventAttendanceMarked, broadcast.AttendanceMarked{
		RegistrationID: registrationID,
		EventID:        reg.EventID,
		AttendedAt:     at,
	}))
}

// Scan verifies a QR payload and marks the registration it names
func (m *Marker) Scan(ctx context.Context, code string) (*MarkResult, error) {
	registrationID, err := m.codec.Decode(code)
	if err != nil {
		m.metrics.AttendanceMarks.WithLabelValues("invalid_code").Inc()
		return nil, err
	}
	return m.MarkAttended(ctx, registrationID)
}

// Code returns the QR payload for a registration. Students only get codes
// for their own registrations.
func (m *Marker) Code(ctx context.Context, actor auth.Identity, registrationID int) (string, error) {
	var reg models.Registration
	err := m.db.WithContext(ctx).First(&reg, registrationID).Error
	if database.IsNotFound(err) {
		return "", fmt.Errorf("%w: registration %d", apperrors.ErrNotFound, registrationID)
	}
	if err != nil {
		return "", fmt.Errorf("error loading registration: %w", err)
	}
	if !actor.IsAdmin() && reg.UserID != actor.UserID {
		return "", fmt.Errorf("%w: registration %d belongs to another user", apperrors.ErrUnauthorized, registrationID)
	}
	return m.codec.Encode(reg.ID), nil
}

// Stats counts registrations and check-ins for an event straight from the rows
func (m *Marker) Stats(ctx context.Context, eventID int) (*Stats, error) {
	stats := &Stats{EventID: eventID}
	err := m.db.WithContext(ctx).Model(&models.Registration{}).
		Select("COUNT(*) AS registered, COALESCE(SUM(CASE WHEN attended THEN 1 ELSE 0 END), 0) AS attended").
		Where("event_id = ?", eventID).
		Scan(stats).Error
	if err != nil {
		return nil, fmt.Errorf("error computing attendance stats: %w", err)
	}
	stats.EventID = eventID
	return stats, nil
}
