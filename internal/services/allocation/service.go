package allocation

import (
	"context"
	"errors"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/services/portfolio"
)

// Compile-time interface check
var _ interfaces.AllocationService = (*Service)(nil)

// Service implements AllocationService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new allocation service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Get returns the portfolio's committed allocation.
func (s *Service) Get(ctx context.Context, portfolioID string) (models.Allocation, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return models.Allocation{}, err
	}
	return p.AllocationStrategy, nil
}

// Set replaces the allocation after validating it.
func (s *Service) Set(ctx context.Context, portfolioID string, a models.Allocation) (*models.Portfolio, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	p.AllocationStrategy = a
	if err := s.storage.PortfolioStore().Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("portfolio", p.ID).
		Float64("stocks", a.Stocks).
		Float64("bonds", a.Bonds).
		Float64("etfs", a.ETFs).
		Msg("Allocation updated")
	return p, nil
}

// Adjust moves one bucket and rebalances the rest. The result is saved only when it totals 100.
func (s *Service) Adjust(ctx context.Context, portfolioID string, bucket models.Bucket, value float64) (*interfaces.AdjustOutcome, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	res, err := AdjustBucket(p.AllocationStrategy, bucket, value)
	if err != nil {
		return nil, err
	}

	out := &interfaces.AdjustOutcome{Allocation: res.Allocation, Total: res.Total, Balanced: res.Balanced}
	if !res.Balanced {
		s.logger.Warn().
			Str("portfolio", p.ID).
			Str("bucket", string(bucket)).
			Float64("total", res.Total).
			Msg("Allocation adjustment left unbalanced total; not saved")
		return out, nil
	}
	if res.Allocation == p.AllocationStrategy {
		return out, nil
	}
	if _, err := s.Set(ctx, p.ID, res.Allocation); err != nil {
		return nil, err
	}
	out.Saved = true
	return out, nil
}

// ApplyRecommended sets the preset for the user's latest risk assessment.
func (s *Service) ApplyRecommended(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	latest, err := s.storage.RiskAssessmentStore().Latest(ctx, common.ResolveUserID(ctx))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("risk_assessment", "complete the risk questionnaire first")
		}
		return nil, err
	}
	preset, err := DefaultFor(latest.RiskCategory)
	if err != nil {
		return nil, err
	}
	return s.Set(ctx, portfolioID, preset)
}

// RenderChart draws the portfolio's allocation as a PNG pie chart.
func (s *Service) RenderChart(ctx context.Context, portfolioID string) ([]byte, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	return RenderAllocationChart(p.Name, p.AllocationStrategy)
}
