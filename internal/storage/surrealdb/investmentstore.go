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

// InvestmentStore implements interfaces.InvestmentStore using SurrealDB.
type InvestmentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.InvestmentStore = (*InvestmentStore)(nil)

type investmentRecord struct {
	Key             string    `json:"key"`
	UserID          string    `json:"user_id"`
	PortfolioID     string    `json:"portfolio_id"`
	Symbol          string    `json:"symbol"`
	Shares          float64   `json:"shares"`
	AvgCostPerShare float64   `json:"avg_cost_per_share"`
	CurrentPrice    float64   `json:"current_price"`
	TotalValue      float64   `json:"total_value"`
	InvestmentType  string    `json:"investment_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toInvestmentRecord(inv *models.Investment) investmentRecord {
	return investmentRecord{
		Key:             inv.ID,
		UserID:          inv.UserID,
		PortfolioID:     inv.PortfolioID,
		Symbol:          inv.Symbol,
		Shares:          inv.Shares,
		AvgCostPerShare: inv.AvgCostPerShare,
		CurrentPrice:    inv.CurrentPrice,
		TotalValue:      inv.TotalValue,
		InvestmentType:  inv.InvestmentType,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func (r investmentRecord) model() models.Investment {
	return models.Investment{
		ID:              r.Key,
		UserID:          r.UserID,
		PortfolioID:     r.PortfolioID,
		Symbol:          r.Symbol,
		Shares:          r.Shares,
		AvgCostPerShare: r.AvgCostPerShare,
		CurrentPrice:    r.CurrentPrice,
		TotalValue:      r.TotalValue,
		InvestmentType:  r.InvestmentType,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// NewInvestmentStore creates a new InvestmentStore.
func NewInvestmentStore(db *surrealdb.DB, logger *common.Logger) *InvestmentStore {
	return &InvestmentStore{db: db, logger: logger}
}

func (s *InvestmentStore) Create(ctx context.Context, inv *models.Investment) error {
	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableInvestment, inv.ID), "record": toInvestmentRecord(inv)}
	if _, err := surrealdb.Query[[]investmentRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (s *InvestmentStore) Get(ctx context.Context, id string) (*models.Investment, error) {
	record, err := surrealdb.Select[investmentRecord](ctx, s.db, surrealmodels.NewRecordID(tableInvestment, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select investment: %w", err)
	}
	if record == nil || record.Key == "" {
		return nil, fmt.Errorf("investment '%s': %w", id, models.ErrNotFound)
	}
	inv := record.model()
	return &inv, nil
}

func (s *InvestmentStore) ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Investment, error) {
	sql := "SELECT * FROM investment WHERE portfolio_id = $portfolio_id"
	results, err := surrealdb.Query[[]investmentRecord](ctx, s.db, sql, map[string]any{"portfolio_id": portfolioID})
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	records := rows(results)
	invs := make([]models.Investment, len(records))
	for i, r := range records {
		invs[i] = r.model()
	}
	return invs, nil
}

func (s *InvestmentStore) Update(ctx context.Context, inv *models.Investment) error {
	if _, err := s.Get(ctx, inv.ID); err != nil {
		return err
	}
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableInvestment, inv.ID), "record": toInvestmentRecord(inv)}
	if _, err := surrealdb.Query[[]investmentRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	return nil
}

func (s *InvestmentStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[investmentRecord](ctx, s.db, surrealmodels.NewRecordID(tableInvestment, id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete investment '%s': %w", id, err)
	}
	return nil
}

// ReplaceGroup runs the update and deletes inside one SurrealDB transaction.
func (s *InvestmentStore) ReplaceGroup(ctx context.Context, canonical *models.Investment, deleteIDs []string) error {
	if _, err := s.Get(ctx, canonical.ID); err != nil {
		return err
	}
	ids := make([]surrealmodels.RecordID, len(deleteIDs))
	for i, id := range deleteIDs {
		ids[i] = surrealmodels.NewRecordID(tableInvestment, id)
	}
	sql := `BEGIN TRANSACTION;
UPSERT $rid CONTENT $record;
FOR $id IN $ids { DELETE $id; };
COMMIT TRANSACTION;`
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID(tableInvestment, canonical.ID),
		"record": toInvestmentRecord(canonical),
		"ids":    ids,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to replace investment group: %w", err)
	}
	return nil
}
