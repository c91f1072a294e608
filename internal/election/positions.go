package election

import (
	"context"
	"fmt"
	"strings"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/models"
)

func (s *Service) CreatePosition(ctx context.Context, actor auth.Identity, req models.CreatePositionRequest) (*models.Position, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if req.IsGlobal && req.HouseID != nil {
		return nil, fmt.Errorf("%w: a global position cannot be scoped to a house", apperrors.ErrInvalidInput)
	}

	pos := models.Position{
		Title:    title,
		HouseID:  req.HouseID,
		IsGlobal: req.IsGlobal || req.HouseID == nil,
	}
	err := database.Retry(ctx, func() error {
		pos.ID = 0
		return s.db.WithContext(ctx).Create(&pos).Error
	})
	if err != nil {
		return nil, fmt.Errorf("error creating position: %w", err)
	}

	s.logger.WithField("position_id", pos.ID).Info("position created")
	return &pos, nil
}

// UpdatePosition changes a position's title; scope is fixed at creation
func (s *Service) UpdatePosition(ctx context.Context, actor auth.Identity, id int, req models.UpdatePositionRequest) (*models.Position, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}

	var pos models.Position
	err := database.Retry(ctx, func() error {
		res := s.db.WithContext(ctx).Model(&models.Position{}).Where("id = ?", id).
			Updates(map[string]any{"title": title, "updated_at": s.timestamp()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: position %d", apperrors.ErrNotFound, id)
		}
		return s.db.WithContext(ctx).First(&pos, id).Error
	})
	s.positions.Remove(id)
	if err != nil {
		return nil, err
	}

	return &pos, nil
}

// GetPosition reads through the position cache. Only scope and title are
// cached; both change solely through UpdatePosition, which evicts the local
// entry. Edits made on other instances show up once the TTL lapses.
func (s *Service) GetPosition(ctx context.Context, id int) (*models.Position, error) {
	if pos, ok := s.positions.Get(id); ok {
		return &pos, nil
	}

	var pos models.Position
	err := database.Retry(ctx, func() error {
		return s.db.WithContext(ctx).First(&pos, id).Error
	})
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("%w: position %d", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading position: %w", err)
	}

	s.positions.Add(id, pos)
	return &pos, nil
}

// ListPositions returns global positions plus those scoped to houseID; a nil
// houseID returns every position.
func (s *Service) ListPositions(ctx context.Context, houseID *int) ([]models.Position, error) {
	var positions []models.Position
	q := s.db.WithContext(ctx).Order("id")
	if houseID != nil {
		q = q.Where("is_global = ? OR house_id = ?", true, *houseID)
	}
	if err := q.Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("error listing positions: %w", err)
	}
	return positions, nil
}
