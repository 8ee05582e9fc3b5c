// Package portfolio manages portfolios and their valuation
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger

	// createMu serialises first-access creation of the default portfolio.
	createMu sync.Mutex
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// LoadOwned fetches a portfolio and hides it when it belongs to another user.
func LoadOwned(ctx context.Context, storage interfaces.StorageManager, id string) (*models.Portfolio, error) {
	if strings.TrimSpace(id) == "" {
		return nil, models.NewValidationError("portfolio_id", "is required")
	}
	p, err := storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != common.ResolveUserID(ctx) {
		return nil, fmt.Errorf("portfolio '%s': %w", id, models.ErrNotFound)
	}
	return p, nil
}

// Create adds a portfolio. Making it active deactivates the others.
func (s *Service) Create(ctx context.Context, in models.NewPortfolio) (*models.Portfolio, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	if math.IsNaN(in.CashBalance) || in.CashBalance < 0 {
		return nil, models.NewValidationError("cash_balance", "must not be negative")
	}
	alloc := models.DefaultAllocation()
	if in.Allocation != nil {
		if err := in.Allocation.Validate(); err != nil {
			return nil, err
		}
		alloc = *in.Allocation
	}

	userID := common.ResolveUserID(ctx)
	existing, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	p := &models.Portfolio{
		ID:                 uuid.New().String(),
		UserID:             userID,
		Name:               name,
		CashBalance:        common.RoundCash(in.CashBalance),
		AllocationStrategy: alloc,
		IsActive:           in.Active || len(existing) == 0,
	}
	if err := s.storage.PortfolioStore().Create(ctx, p); err != nil {
		return nil, err
	}

	if p.IsActive {
		for i := range existing {
			if !existing[i].IsActive {
				continue
			}
			existing[i].IsActive = false
			if err := s.storage.PortfolioStore().Update(ctx, &existing[i]); err != nil {
				return nil, fmt.Errorf("failed to deactivate portfolio %s: %w", existing[i].ID, err)
			}
		}
	}

	s.logger.Info().
		Str("user", userID).
		Str("portfolio", p.ID).
		Str("name", p.Name).
		Bool("active", p.IsActive).
		Msg("Portfolio created")
	return p, nil
}

// List returns the user's portfolios, oldest first.
func (s *Service) List(ctx context.Context) ([]models.Portfolio, error) {
	ps, err := s.storage.PortfolioStore().ListByUser(ctx, common.ResolveUserID(ctx))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
	return ps, nil
}

// Get returns one of the user's portfolios.
func (s *Service) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	return LoadOwned(ctx, s.storage, id)
}

// Active returns the active portfolio: the first flagged active, else the
// first created. A default portfolio is created when the user has none.
func (s *Service) Active(ctx context.Context) (*models.Portfolio, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if p := pickActive(ps); p != nil {
		return p, nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	// Concurrent first requests must still create a single portfolio.
	ps, err = s.List(ctx)
	if err != nil {
		return nil, err
	}
	if p := pickActive(ps); p != nil {
		return p, nil
	}

	p := &models.Portfolio{
		ID:                 uuid.New().String(),
		UserID:             common.ResolveUserID(ctx),
		Name:               models.DefaultPortfolioName,
		AllocationStrategy: models.DefaultAllocation(),
		IsActive:           true,
		CreatedAt:          time.Now(),
	}
	if err := s.storage.PortfolioStore().Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user", p.UserID).Str("portfolio", p.ID).Msg("Default portfolio created")
	return p, nil
}

func pickActive(ps []models.Portfolio) *models.Portfolio {
	for i := range ps {
		if ps[i].IsActive {
			return &ps[i]
		}
	}
	if len(ps) > 0 {
		return &ps[0]
	}
	return nil
}

// GetValuation computes the portfolio's value from its current positions.
func (s *Service) GetValuation(ctx context.Context, id string) (*models.Valuation, error) {
	p, err := LoadOwned(ctx, s.storage, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.storage.InvestmentStore().ListByPortfolio(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	v := Valuate(p, positions)
	if !v.Warnings.Empty() {
		s.logger.Warn().Str("portfolio", p.ID).Str("warning", v.Warnings.String()).Msg("Duplicate positions detected")
	}
	return v, nil
}
