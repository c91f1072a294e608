package election

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) target() (models.NominationStatus, bool) {
	switch d {
	case DecisionApprove:
		return models.StatusApproved, true
	case DecisionReject:
		return models.StatusRejected, true
	}
	return "", false
}

// SubmitNomination records a pending candidacy for the caller. At most one
// non-rejected nomination per user and position exists; the partial unique
// index enforces it.
func (s *Service) SubmitNomination(ctx context.Context, actor auth.Identity, positionID int, req models.SubmitNominationRequest) (*models.Nomination, error) {
	if actor.HouseID == nil {
		return nil, fmt.Errorf("%w: nominee must belong to a house", apperrors.ErrUnauthorized)
	}
	manifesto := strings.TrimSpace(req.Manifesto)
	if manifesto == "" {
		return nil, fmt.Errorf("%w: manifesto is required", apperrors.ErrInvalidInput)
	}

	pos, err := s.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if !pos.OpenTo(actor.HouseID) {
		return nil, fmt.Errorf("%w: position %d is reserved for another house", apperrors.ErrUnauthorized, positionID)
	}

	nom := models.Nomination{
		UserID:     actor.UserID,
		PositionID: positionID,
		HouseID:    *actor.HouseID,
		Manifesto:  manifesto,
		PhotoRef:   req.PhotoRef,
		Status:     models.StatusPending,
	}
	err = database.Retry(ctx, func() error {
		nom.ID = 0
		return s.db.WithContext(ctx).Create(&nom).Error
	})
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: user %d, position %d", apperrors.ErrDuplicateNomination, actor.UserID, positionID)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating nomination: %w", err)
	}

	s.metrics.NominationsSubmitted.Inc()
	s.logger.WithFields(logrus.Fields{
		"nomination_id": nom.ID,
		"position_id":   positionID,
		"user_id":       actor.UserID,
	}).Info("nomination submitted")
	s.publish(broadcast.EventNominationSubmitted, broadcast.NominationSubmitted{Nomination: nom})

	return &nom, nil
}

// ModerateNomination moves a pending nomination to approved or rejected.
// The status check and the write are one conditional UPDATE.
func (s *Service) ModerateNomination(ctx context.Context, actor auth.Identity, id int, decision Decision) (*models.Nomination, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	target, ok := decision.target()
	if !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", apperrors.ErrInvalidInput, decision)
	}

	var nom models.Nomination
	err := database.Retry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Nomination{}).
				Where("id = ? AND status = ?", id, models.StatusPending).
				Updates(map[string]any{"status": target, "updated_at": s.timestamp()})
			if res.Error != nil {
				return res.Error
			}

			err := tx.First(&nom, id).Error
			if database.IsNotFound(err) {
				return fmt.Errorf("%w: nomination %d", apperrors.ErrNotFound, id)
			}
			if err != nil {
				return err
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: nomination %d is %s, not pending", apperrors.ErrInvalidTransition, id, nom.Status)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.NominationsModerated.WithLabelValues(string(decision)).Inc()
	s.logger.WithFields(logrus.Fields{
		"nomination_id": id,
		"status":        nom.Status,
	}).Info("nomination moderated")
	s.publish(broadcast.EventNominationModerated, broadcast.NominationModerated{Nomination: nom})

	return &nom, nil
}

func (s *Service) GetNomination(ctx context.Context, id int) (*models.Nomination, error) {
	var nom models.Nomination
	err := s.db.WithContext(ctx).First(&nom, id).Error
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("%w: nomination %d", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading nomination: %w", err)
	}
	return &nom, nil
}

// ListApproved returns votable candidates, including a declared winner, for
// one position or for all of them.
func (s *Service) ListApproved(ctx context.Context, positionID *int) ([]models.Nomination, error) {
	q := s.db.WithContext(ctx).
		Where("status IN ?", []string{string(models.StatusApproved), string(models.StatusWinner)}).
		Order("position_id").Order("id")
	if positionID != nil {
		q = q.Where("position_id = ?", *positionID)
	}

	var noms []models.Nomination
	if err := q.Find(&noms).Error; err != nil {
		return nil, fmt.Errorf("error listing nominations: %w", err)
	}
	return noms, nil
}

// ListPending is the admin moderation queue, oldest first
func (s *Service) ListPending(ctx context.Context, actor auth.Identity) ([]models.Nomination, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	var noms []models.Nomination
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at").Order("id").
		Find(&noms).Error
	if err != nil {
		return nil, fmt.Errorf("error listing pending nominations: %w", err)
	}
	return noms, nil
}
