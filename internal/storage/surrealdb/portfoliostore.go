package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// PortfolioStore implements interfaces.PortfolioStore using SurrealDB.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)

type portfolioRecord struct {
	Key              string                 `json:"key"`
	UserID           string                 `json:"user_id"`
	Name             string                 `json:"name"`
	CashBalance      float64                `json:"cash_balance"`
	Allocation       models.Allocation      `json:"allocation_strategy"`
	IsActive         bool                   `json:"is_active"`
	RoundUpsInvested float64                `json:"round_ups_invested"`
	Carry            *models.ExecutionCarry `json:"carry,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func toPortfolioRecord(p *models.Portfolio) portfolioRecord {
	return portfolioRecord{
		Key:              p.ID,
		UserID:           p.UserID,
		Name:             p.Name,
		CashBalance:      p.CashBalance,
		Allocation:       p.AllocationStrategy,
		IsActive:         p.IsActive,
		RoundUpsInvested: p.RoundUpsInvested,
		Carry:            p.Carry,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (r portfolioRecord) model() models.Portfolio {
	return models.Portfolio{
		ID:                 r.Key,
		UserID:             r.UserID,
		Name:               r.Name,
		CashBalance:        r.CashBalance,
		AllocationStrategy: r.Allocation,
		IsActive:           r.IsActive,
		RoundUpsInvested:   r.RoundUpsInvested,
		Carry:              r.Carry,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{db: db, logger: logger}
}

func (s *PortfolioStore) Create(ctx context.Context, p *models.Portfolio) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tablePortfolio, p.ID), "record": toPortfolioRecord(p)}
	if _, err := surrealdb.Query[[]portfolioRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioStore) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	record, err := surrealdb.Select[portfolioRecord](ctx, s.db, surrealmodels.NewRecordID(tablePortfolio, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if record == nil || record.Key == "" {
		return nil, fmt.Errorf("portfolio '%s': %w", id, models.ErrNotFound)
	}
	p := record.model()
	return &p, nil
}

func (s *PortfolioStore) ListByUser(ctx context.Context, userID string) ([]models.Portfolio, error) {
	sql := "SELECT * FROM portfolio WHERE user_id = $user_id ORDER BY created_at ASC"
	results, err := surrealdb.Query[[]portfolioRecord](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	records := rows(results)
	ps := make([]models.Portfolio, len(records))
	for i, r := range records {
		ps[i] = r.model()
	}
	return ps, nil
}

func (s *PortfolioStore) Update(ctx context.Context, p *models.Portfolio) error {
	if _, err := s.Get(ctx, p.ID); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tablePortfolio, p.ID), "record": toPortfolioRecord(p)}
	if _, err := surrealdb.Query[[]portfolioRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	return nil
}
