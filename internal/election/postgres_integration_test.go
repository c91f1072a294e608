//go:build integration

package election_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/election"
	"github.com/emilythestrangee/housecup/backend/internal/models"
	"github.com/emilythestrangee/housecup/backend/internal/testutil"
)

// On Postgres the casts really run in parallel across pooled connections,
// so only the unique index stands between them.
func TestPostgresConcurrentCasts(t *testing.T) {
	db, _ := testutil.SetupPostgresDB(t)
	svc, err := election.NewService(db.DB, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	pos := testutil.CreatePosition(t, db.DB, "Head Student", nil)
	a := testutil.CreateNomination(t, db.DB, 10, pos.ID, 1, models.StatusApproved)
	b := testutil.CreateNomination(t, db.DB, 11, pos.ID, 2, models.StatusApproved)

	const voters, attempts = 25, 4
	var accepted, rejected atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for v := 0; v < voters; v++ {
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(v, i int) {
				defer wg.Done()
				<-start
				target := a.ID
				if (v+i)%2 == 1 {
					target = b.ID
				}
				_, err := svc.CastVote(ctx, testutil.Student(100+v, 1), pos.ID, target)
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, apperrors.ErrAlreadyVoted):
					rejected.Add(1)
				default:
					t.Errorf("voter %d: %v", v, err)
				}
			}(v, i)
		}
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(voters), accepted.Load())
	assert.Equal(t, int32(voters*(attempts-1)), rejected.Load())

	ca, err := svc.Count(ctx, a.ID)
	require.NoError(t, err)
	cb, err := svc.Count(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(voters), ca+cb)
}

// A moderation racing a burst of submissions never leaves two live
// candidacies for the same user and position.
func TestPostgresConcurrentSubmissions(t *testing.T) {
	db, _ := testutil.SetupPostgresDB(t)
	svc, err := election.NewService(db.DB, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	pos := testutil.CreatePosition(t, db.DB, "Prefect", testutil.IntPtr(3))
	nominee := testutil.Student(40, 3)

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitNomination(ctx, nominee, pos.ID, models.SubmitNominationRequest{Manifesto: "vote for me"})
			if err == nil {
				created.Add(1)
			} else if !errors.Is(err, apperrors.ErrDuplicateNomination) {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())

	var live int64
	require.NoError(t, db.DB.Model(&models.Nomination{}).
		Where("user_id = ? AND position_id = ? AND status <> ?", nominee.UserID, pos.ID, models.StatusRejected).
		Count(&live).Error)
	assert.Equal(t, int64(1), live)
}
