// Package election implements positions, nominations, the vote ledger and
// winner declaration.
//
// Every mutating operation commits first and publishes afterwards; a
// publish never blocks or fails a committed write. Vote counts are always
// read from the votes table.
package election

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/metrics"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

const (
	positionCacheSize = 256
	// bounds how long another instance's title edit can go unseen here
	defaultPositionTTL = 30 * time.Second
)

type Service struct {
	db        *gorm.DB
	publisher broadcast.Publisher
	metrics   *metrics.Metrics
	positions *expirable.LRU[int, models.Position]
	ttl       time.Duration
	logger    *logrus.Entry
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for vote timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPositionTTL sets how long a cached position is served before it is
// re-read from the database
func WithPositionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger.WithField("component", "election")
	}
}

func NewService(db *gorm.DB, publisher broadcast.Publisher, m *metrics.Metrics, opts ...Option) (*Service, error) {
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	if m == nil {
		m = metrics.New(nil)
	}

	s := &Service{
		db:        db,
		publisher: publisher,
		metrics:   m,
		ttl:       defaultPositionTTL,
		logger:    logrus.StandardLogger().WithField("component", "election"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("position cache TTL must be positive, got %s", s.ttl)
	}
	s.positions = expirable.NewLRU[int, models.Position](positionCacheSize, nil, s.ttl)
	return s, nil
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Service) publish(eventType broadcast.EventType, data any) {
	s.publisher.Publish(broadcast.NewEvent(eventType, data))
}

func scopeFields(positionID int, houseID *int) logrus.Fields {
	fields := logrus.Fields{"position_id": positionID}
	if houseID != nil {
		fields["house_id"] = *houseID
	}
	return fields
}
