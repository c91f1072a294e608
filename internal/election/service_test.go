package election

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/housecup/backend/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock returns a strictly increasing time on every call
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fixture struct {
	svc *Service
	db  *gorm.DB
	pub *testutil.RecordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &testutil.RecordingPublisher{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clock := &stepClock{t: epoch}
	svc, err := NewService(db.DB, pub, nil, WithClock(clock.Now), WithLogger(logger))
	require.NoError(t, err)

	return &fixture{svc: svc, db: db.DB, pub: pub}
}
