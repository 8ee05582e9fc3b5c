package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PortfolioStore persists portfolios in BadgerHold.
type PortfolioStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)

func (s *PortfolioStore) Create(_ context.Context, p *models.Portfolio) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.db.Insert(p.ID, p); err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	s.logger.Debug().Str("id", p.ID).Str("name", p.Name).Msg("Portfolio created")
	return nil
}

func (s *PortfolioStore) Get(_ context.Context, id string) (*models.Portfolio, error) {
	var p models.Portfolio
	if err := s.db.Get(id, &p); err != nil {
		return nil, notFound(err, "portfolio", id)
	}
	return &p, nil
}

func (s *PortfolioStore) ListByUser(_ context.Context, userID string) ([]models.Portfolio, error) {
	var ps []models.Portfolio
	if err := s.db.Find(&ps, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return ps, nil
}

func (s *PortfolioStore) Update(_ context.Context, p *models.Portfolio) error {
	p.UpdatedAt = time.Now()
	if err := s.db.Update(p.ID, p); err != nil {
		return notFound(err, "portfolio", p.ID)
	}
	return nil
}
