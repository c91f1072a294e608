package election

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/models"
	"github.com/emilythestrangee/housecup/backend/internal/testutil"
)

func castN(t *testing.T, f *fixture, pos models.Position, nom models.Nomination, firstVoter, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.svc.CastVote(context.Background(), testutil.Student(firstVoter+i, 1), pos.ID, nom.ID)
		require.NoError(t, err)
	}
}

func TestDeclareWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := testutil.CreatePosition(t, f.db, "Head Student", nil)
	n1 := testutil.CreateNomination(t, f.db, 10, p1.ID, 1, models.StatusApproved)
	n2 := testutil.CreateNomination(t, f.db, 11, p1.ID, 2, models.StatusApproved)

	castN(t, f, p1, n2, 200, 3)
	castN(t, f, p1, n1, 100, 5)

	winner, err := f.svc.DeclareWinner(ctx, testutil.Admin(), p1.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, n1.ID, winner.ID)
	assert.Equal(t, models.StatusWinner, winner.Status)

	loser, err := f.svc.GetNomination(ctx, n2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, loser.Status)

	events := f.pub.OfType(broadcast.EventWinnerDeclared)
	require.Len(t, events, 1)
	payload := events[0].Data.(broadcast.WinnerDeclared)
	assert.Equal(t, p1.ID, payload.PositionID)
	assert.Equal(t, "Head Student", payload.PositionTitle)
	assert.Equal(t, n1.ID, payload.WinnerNominationID)
	assert.Equal(t, int64(5), payload.VoteCount)
	assert.Nil(t, payload.HouseID)
}

func TestRedeclareReplacesWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := testutil.CreatePosition(t, f.db, "Head Student", nil)
	n1 := testutil.CreateNomination(t, f.db, 10, p1.ID, 1, models.StatusApproved)
	n2 := testutil.CreateNomination(t, f.db, 11, p1.ID, 2, models.StatusApproved)

	castN(t, f, p1, n1, 100, 2)
	_, err := f.svc.DeclareWinner(ctx, testutil.Admin(), p1.ID, nil)
	require.NoError(t, err)

	// redeclaring with no change keeps the same winner
	again, err := f.svc.DeclareWinner(ctx, testutil.Admin(), p1.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, n1.ID, again.ID)

	castN(t, f, p1, n2, 200, 3)
	replaced, err := f.svc.DeclareWinner(ctx, testutil.Admin(), p1.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, n2.ID, replaced.ID)

	var winners []models.Nomination
	require.NoError(t, f.db.Where("position_id = ? AND status = ?", p1.ID, models.StatusWinner).Find(&winners).Error)
	require.Len(t, winners, 1)
	assert.Equal(t, n2.ID, winners[0].ID)

	old, err := f.svc.GetNomination(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, old.Status)
}

func TestDeclareWinnerPerHouse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := testutil.CreatePosition(t, f.db, "House Rep", nil)
	red1 := testutil.CreateNomination(t, f.db, 10, pos.ID, 1, models.StatusApproved)
	red2 := testutil.CreateNomination(t, f.db, 11, pos.ID, 1, models.StatusApproved)
	blue := testutil.CreateNomination(t, f.db, 12, pos.ID, 2, models.StatusApproved)

	castN(t, f, pos, blue, 300, 9)
	castN(t, f, pos, red2, 200, 2)
	castN(t, f, pos, red1, 100, 1)

	redWinner, err := f.svc.DeclareWinner(ctx, testutil.Admin(), pos.ID, testutil.IntPtr(1))
	require.NoError(t, err)
	assert.Equal(t, red2.ID, redWinner.ID)

	blueWinner, err := f.svc.DeclareWinner(ctx, testutil.Admin(), pos.ID, testutil.IntPtr(2))
	require.NoError(t, err)
	assert.Equal(t, blue.ID, blueWinner.ID)

	// declaring red again does not demote blue's winner
	_, err = f.svc.DeclareWinner(ctx, testutil.Admin(), pos.ID, testutil.IntPtr(1))
	require.NoError(t, err)
	got, err := f.svc.GetNomination(ctx, blue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWinner, got.Status)

	_, err = f.svc.DeclareWinner(ctx, testutil.Admin(), pos.ID, testutil.IntPtr(3))
	assert.ErrorIs(t, err, apperrors.ErrNoApprovedNominations)
}

func TestDeclareWinnerRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := testutil.CreatePosition(t, f.db, "Head Student", nil)
	testutil.CreateNomination(t, f.db, 10, pos.ID, 1, models.StatusPending)
	testutil.CreateNomination(t, f.db, 11, pos.ID, 1, models.StatusRejected)

	_, err := f.svc.DeclareWinner(ctx, testutil.Admin(), pos.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoApprovedNominations)

	_, err = f.svc.DeclareWinner(ctx, testutil.Admin(), 999, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.DeclareWinner(ctx, testutil.Student(3, 1), pos.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	assert.Empty(t, f.pub.OfType(broadcast.EventWinnerDeclared))
}

func TestTallyOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := testutil.CreatePosition(t, f.db, "Head Student", nil)

	early := testutil.CreateNomination(t, f.db, 10, pos.ID, 1, models.StatusApproved)
	late := testutil.CreateNomination(t, f.db, 11, pos.ID, 2, models.StatusApproved)
	leader := testutil.CreateNomination(t, f.db, 12, pos.ID, 3, models.StatusApproved)
	zeroA := testutil.CreateNomination(t, f.db, 13, pos.ID, 1, models.StatusApproved)
	zeroB := testutil.CreateNomination(t, f.db, 14, pos.ID, 2, models.StatusApproved)
	testutil.CreateNomination(t, f.db, 15, pos.ID, 2, models.StatusPending)

	at := func(minutes int) time.Time { return epoch.Add(time.Duration(minutes) * time.Minute) }

	// early and late tie at two votes; early's first vote came first even
	// though its second vote is later than both of late's
	testutil.CreateVote(t, f.db, 100, late, at(5))
	testutil.CreateVote(t, f.db, 101, late, at(6))
	testutil.CreateVote(t, f.db, 102, early, at(1))
	testutil.CreateVote(t, f.db, 103, early, at(9))
	testutil.CreateVote(t, f.db, 104, leader, at(7))
	testutil.CreateVote(t, f.db, 105, leader, at(8))
	testutil.CreateVote(t, f.db, 106, leader, at(10))

	entries, err := f.svc.Tally(ctx, pos.ID, nil)
	require.NoError(t, err)

	var ids []int
	var counts []int64
	for _, e := range entries {
		ids = append(ids, e.NominationID)
		counts = append(counts, e.VoteCount)
	}
	assert.Equal(t, []int{leader.ID, early.ID, late.ID, zeroA.ID, zeroB.ID}, ids)
	assert.Equal(t, []int64{3, 2, 2, 0, 0}, counts)

	// repeated reads over the same rows give the same ranking
	for i := 0; i < 5; i++ {
		again, err := f.svc.Tally(ctx, pos.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, entries, again)
	}
}

func TestTallyTieBreakFollowsFirstVoteNotID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := testutil.CreatePosition(t, f.db, "Head Student", nil)
	lowID := testutil.CreateNomination(t, f.db, 10, pos.ID, 1, models.StatusApproved)
	highID := testutil.CreateNomination(t, f.db, 11, pos.ID, 2, models.StatusApproved)

	testutil.CreateVote(t, f.db, 100, highID, epoch.Add(time.Second))
	testutil.CreateVote(t, f.db, 101, lowID, epoch.Add(2*time.Second))

	entries, err := f.svc.Tally(ctx, pos.ID, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, highID.ID, entries[0].NominationID)

	winner, err := f.svc.DeclareWinner(ctx, testutil.Admin(), pos.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, highID.ID, winner.ID)
}

func TestTallyHouseFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pos := testutil.CreatePosition(t, f.db, "House Rep", nil)
	red := testutil.CreateNomination(t, f.db, 10, pos.ID, 1, models.StatusApproved)
	testutil.CreateNomination(t, f.db, 11, pos.ID, 2, models.StatusApproved)

	entries, err := f.svc.Tally(ctx, pos.ID, testutil.IntPtr(1))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, red.ID, entries[0].NominationID)
	assert.Equal(t, 1, entries[0].HouseID)

	empty, err := f.svc.Tally(ctx, pos.ID, testutil.IntPtr(9))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = f.svc.Tally(ctx, 999, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
