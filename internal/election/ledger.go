package election

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type CastResult struct {
	Accepted bool        `json:"accepted"`
	NewCount int64       `json:"new_count"`
	Vote     models.Vote `json:"vote"`
}

// CastVote records the caller's vote for a nomination.
//
// The unique index on (voter_user_id, position_id) decides between racing
// casts: the INSERT either succeeds or fails with a uniqueness violation,
// which becomes ErrAlreadyVoted. There is no separate "has this user voted"
// read. Retrying after an unknown outcome is safe for the same reason.
func (s *Service) CastVote(ctx context.Context, actor auth.Identity, positionID, nominationID int) (*CastResult, error) {
	pos, err := s.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if !pos.OpenTo(actor.HouseID) {
		s.metrics.VotesRejected.WithLabelValues(string(apperrors.KindUnauthorized)).Inc()
		return nil, fmt.Errorf("%w: position %d is reserved for another house", apperrors.ErrUnauthorized, positionID)
	}

	var result CastResult
	err = database.Retry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// FOR SHARE keeps a concurrent moderation or declaration from
			// changing the status between this check and the insert
			var nom models.Nomination
			err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&nom, nominationID).Error
			if database.IsNotFound(err) {
				return fmt.Errorf("%w: nomination %d", apperrors.ErrNotFound, nominationID)
			}
			if err != nil {
				return err
			}
			if nom.PositionID != positionID {
				return fmt.Errorf("%w: nomination %d is not standing for position %d", apperrors.ErrNotFound, nominationID, positionID)
			}
			if nom.Status != models.StatusApproved {
				return fmt.Errorf("%w: nomination %d is %s", apperrors.ErrNominationNotApproved, nominationID, nom.Status)
			}

			vote := models.Vote{
				VoterUserID:  actor.UserID,
				PositionID:   positionID,
				NominationID: nominationID,
				HouseID:      nom.HouseID,
				CastAt:       s.timestamp(),
			}
			if err := tx.Create(&vote).Error; err != nil {
				if database.IsUniqueViolation(err) {
					return fmt.Errorf("%w: user %d, position %d", apperrors.ErrAlreadyVoted, actor.UserID, positionID)
				}
				return err
			}

			var count int64
			if err := tx.Model(&models.Vote{}).Where("nomination_id = ?", nominationID).Count(&count).Error; err != nil {
				return err
			}

			result = CastResult{Accepted: true, NewCount: count, Vote: vote}
			return nil
		})
	})
	if err != nil {
		if kind := apperrors.KindOf(err); kind != apperrors.KindInternal {
			s.metrics.VotesRejected.WithLabelValues(string(kind)).Inc()
			return nil, err
		}
		return nil, fmt.Errorf("error casting vote: %w", err)
	}

	s.metrics.VotesCast.Inc()
	s.logger.WithFields(logrus.Fields{
		"position_id":   positionID,
		"nomination_id": nominationID,
		"vote_count":    result.NewCount,
	}).Debug("vote cast")
	s.publish(broadcast.EventVoteCountUpdated, broadcast.VoteCountUpdated{
		NominationID: nominationID,
		PositionID:   positionID,
		VoteCount:    result.NewCount,
	})

	return &result, nil
}

// Count returns the committed vote count for a nomination
func (s *Service) Count(ctx context.Context, nominationID int) (int64, error) {
	if _, err := s.GetNomination(ctx, nominationID); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).Where("nomination_id = ?", nominationID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting votes: %w", err)
	}
	return count, nil
}

func (s *Service) MyVotes(ctx context.Context, voterUserID int) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("voter_user_id = ?", voterUserID).
		Order("cast_at").Order("id").
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("error listing votes: %w", err)
	}
	return votes, nil
}

// ResetResults deletes every vote for a position, or only those for
// nominees of one house, and demotes a declared winner in that scope so the
// position is back to its pre-tally state. It is the only path that removes
// votes.
func (s *Service) ResetResults(ctx context.Context, actor auth.Identity, positionID int, houseID *int) (int64, error) {
	if err := actor.RequireAdmin(); err != nil {
		return 0, err
	}

	var deleted int64
	err := database.Retry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var pos models.Position
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pos, positionID).Error
			if database.IsNotFound(err) {
				return fmt.Errorf("%w: position %d", apperrors.ErrNotFound, positionID)
			}
			if err != nil {
				return err
			}

			del := tx.Where("position_id = ?", positionID)
			if houseID != nil {
				del = del.Where("house_id = ?", *houseID)
			}
			res := del.Delete(&models.Vote{})
			if res.Error != nil {
				return res.Error
			}
			deleted = res.RowsAffected

			return demoteWinners(tx, positionID, houseID, 0, s.timestamp())
		})
	})
	if err != nil {
		return 0, err
	}

	s.metrics.VotesReset.Add(float64(deleted))
	s.logger.WithFields(scopeFields(positionID, houseID)).
		WithField("deleted", deleted).
		Info("results reset")
	s.publish(broadcast.EventResultsReset, broadcast.ResultsReset{
		PositionID: positionID,
		HouseID:    houseID,
		Deleted:    deleted,
	})

	return deleted, nil
}
