package election

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type TallyEntry struct {
	NominationID int                     `json:"nomination_id"`
	UserID       int                     `json:"user_id"`
	HouseID      int                     `json:"house_id"`
	Status       models.NominationStatus `json:"status"`
	VoteCount    int64                   `json:"vote_count"`
}

// Tally ranks the approved nominations of a position, optionally limited to
// nominees of one house. Order is vote count descending, then the
// nomination whose first vote was cast earliest, then nomination id.
func (s *Service) Tally(ctx context.Context, positionID int, houseID *int) ([]TallyEntry, error) {
	if _, err := s.GetPosition(ctx, positionID); err != nil {
		return nil, err
	}

	entries, err := tally(s.db.WithContext(ctx), positionID, houseID)
	if err != nil {
		return nil, fmt.Errorf("error computing tally: %w", err)
	}
	return entries, nil
}

func tally(db *gorm.DB, positionID int, houseID *int) ([]TallyEntry, error) {
	q := db.Table("nominations AS n").
		Select("n.id AS nomination_id, n.user_id, n.house_id, n.status, COUNT(v.id) AS vote_count").
		Joins("LEFT JOIN votes AS v ON v.nomination_id = n.id").
		Where("n.position_id = ?", positionID).
		Where("n.status IN ?", []string{string(models.StatusApproved), string(models.StatusWinner)})
	if houseID != nil {
		q = q.Where("n.house_id = ?", *houseID)
	}

	// MIN(cast_at) is only compared between nominations with equal non-zero
	// counts, so its NULL ordering never matters
	entries := []TallyEntry{}
	err := q.Group("n.id, n.user_id, n.house_id, n.status").
		Order("vote_count DESC").
		Order("MIN(v.cast_at) ASC").
		Order("n.id ASC").
		Scan(&entries).Error
	return entries, err
}

// DeclareWinner promotes the top of the tally to winner. A previous winner in
// the same scope is demoted to approved first, so redeclaring after more
// votes replaces the result.
func (s *Service) DeclareWinner(ctx context.Context, actor auth.Identity, positionID int, houseID *int) (*models.Nomination, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	var (
		pos    models.Position
		winner models.Nomination
		top    TallyEntry
	)
	err := database.Retry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// serializes declarations and resets of the same position
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pos, positionID).Error
			if database.IsNotFound(err) {
				return fmt.Errorf("%w: position %d", apperrors.ErrNotFound, positionID)
			}
			if err != nil {
				return err
			}

			entries, err := tally(tx, positionID, houseID)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("%w: position %d", apperrors.ErrNoApprovedNominations, positionID)
			}
			top = entries[0]

			now := s.timestamp()
			if err := demoteWinners(tx, positionID, houseID, top.NominationID, now); err != nil {
				return err
			}
			err = tx.Model(&models.Nomination{}).
				Where("id = ?", top.NominationID).
				Updates(map[string]any{"status": models.StatusWinner, "updated_at": now}).Error
			if err != nil {
				return err
			}
			return tx.First(&winner, top.NominationID).Error
		})
	})
	if err != nil {
		return nil, err
	}

	// an UpdatePosition queued behind our row lock may already have evicted
	// the entry; caching the row read under the lock would resurrect it
	s.positions.Remove(pos.ID)
	s.metrics.WinnersDeclared.Inc()
	s.logger.WithFields(scopeFields(positionID, houseID)).
		WithField("nomination_id", winner.ID).
		Info("winner declared")
	s.publish(broadcast.EventWinnerDeclared, broadcast.WinnerDeclared{
		PositionID:         positionID,
		PositionTitle:      pos.Title,
		HouseID:            houseID,
		WinnerNominationID: winner.ID,
		VoteCount:          top.VoteCount,
		Winner:             winner,
	})

	return &winner, nil
}

// demoteWinners returns winners in the scope, except keepID, to approved
func demoteWinners(tx *gorm.DB, positionID int, houseID *int, keepID int, now time.Time) error {
	q := tx.Model(&models.Nomination{}).
		Where("position_id = ? AND status = ?", positionID, models.StatusWinner)
	if houseID != nil {
		q = q.Where("house_id = ?", *houseID)
	}
	if keepID != 0 {
		q = q.Where("id <> ?", keepID)
	}
	return q.Updates(map[string]any{"status": models.StatusApproved, "updated_at": now}).Error
}
