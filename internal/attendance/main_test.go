package attendance

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/housecup/backend/internal/testutil"
)

var checkInTime = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

type fixture struct {
	marker *Marker
	codec  *Codec
	db     *gorm.DB
	pub    *testutil.RecordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pub := &testutil.RecordingPublisher{}

	codec, err := NewCodec("qr-test-secret")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	marker := NewMarker(db.DB, codec, pub, nil,
		WithClock(func() time.Time { return checkInTime }),
		WithLogger(logger))
	return &fixture{marker: marker, codec: codec, db: db.DB, pub: pub}
}
