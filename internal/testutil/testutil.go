package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/config"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

const JWTSecret = "test-secret"

// SetupTestDB creates a migrated SQLite database in the test's temp dir
func SetupTestDB(t *testing.T) *database.Database {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "housecup.db"),
	}
	db, err := database.New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() { db.Close() })
	return db
}

func IntPtr(v int) *int {
	return &v
}

func Admin() auth.Identity {
	return auth.Identity{UserID: 1, Role: auth.RoleAdmin}
}

func Student(userID, houseID int) auth.Identity {
	return auth.Identity{UserID: userID, Role: auth.RoleStudent, HouseID: IntPtr(houseID)}
}

// Token mints a bearer token for id signed with JWTSecret
func Token(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := auth.NewVerifier(JWTSecret).Issue(id, time.Hour)
	require.NoError(t, err)
	return token
}

func CreatePosition(t *testing.T, db *gorm.DB, title string, houseID *int) models.Position {
	t.Helper()
	pos := models.Position{Title: title, HouseID: houseID, IsGlobal: houseID == nil}
	require.NoError(t, db.Create(&pos).Error)
	return pos
}

func CreateNomination(t *testing.T, db *gorm.DB, userID, positionID, houseID int, status models.NominationStatus) models.Nomination {
	t.Helper()
	nom := models.Nomination{
		UserID:     userID,
		PositionID: positionID,
		HouseID:    houseID,
		Manifesto:  "Vote for me",
		Status:     status,
	}
	require.NoError(t, db.Create(&nom).Error)
	return nom
}

// CreateVote inserts a vote row directly, bypassing the ledger
func CreateVote(t *testing.T, db *gorm.DB, voterID int, nom models.Nomination, castAt time.Time) models.Vote {
	t.Helper()
	vote := models.Vote{
		VoterUserID:  voterID,
		PositionID:   nom.PositionID,
		NominationID: nom.ID,
		HouseID:      nom.HouseID,
		CastAt:       castAt.UTC(),
	}
	require.NoError(t, db.Create(&vote).Error)
	return vote
}

func CreateRegistration(t *testing.T, db *gorm.DB, eventID, userID int) models.Registration {
	t.Helper()
	reg := models.Registration{EventID: eventID, UserID: userID}
	require.NoError(t, db.Create(&reg).Error)
	return reg
}

// RecordingPublisher keeps every published event for assertions
type RecordingPublisher struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (p *RecordingPublisher) Publish(evt broadcast.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *RecordingPublisher) Events() []broadcast.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]broadcast.Event(nil), p.events...)
}

func (p *RecordingPublisher) OfType(eventType broadcast.EventType) []broadcast.Event {
	var out []broadcast.Event
	for _, evt := range p.Events() {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}
