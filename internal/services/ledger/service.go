// Package ledger is the single writer of position rows. Every mutation of a
// portfolio's positions runs under that portfolio's lock.
package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/services/portfolio"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	locks   *Locker
	now     func() time.Time
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		locks:   NewLocker(),
		now:     time.Now,
	}
}

// Lock takes the portfolio's ledger lock. Callers that hold it use ApplyLot
// instead of AddLot.
func (s *Service) Lock(portfolioID string) func() {
	return s.locks.Lock(portfolioID)
}

func normalizeLot(lot models.Lot) (models.Lot, error) {
	lot.Symbol = strings.ToUpper(strings.TrimSpace(lot.Symbol))
	if lot.Symbol == "" {
		return lot, models.NewValidationError("symbol", "is required")
	}
	if math.IsNaN(lot.Shares) || math.IsInf(lot.Shares, 0) || lot.Shares <= 0 {
		return lot, models.NewValidationError("shares", "must be positive")
	}
	if math.IsNaN(lot.Price) || math.IsInf(lot.Price, 0) || lot.Price <= 0 {
		return lot, models.NewValidationError("price", "must be positive")
	}
	if lot.CurrentPrice < 0 || math.IsNaN(lot.CurrentPrice) {
		return lot, models.NewValidationError("current_price", "must not be negative")
	}
	lot.Shares = common.RoundShares(lot.Shares)
	if lot.Shares == 0 {
		return lot, models.NewValidationError("shares", "rounds to zero")
	}
	return lot, nil
}

// AddLot merges a purchase into the portfolio's position for the symbol, or
// opens a new position when there is none.
func (s *Service) AddLot(ctx context.Context, portfolioID string, lot models.Lot) (*models.Investment, error) {
	lot, err := normalizeLot(lot)
	if err != nil {
		return nil, err
	}
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}

	unlock := s.Lock(p.ID)
	defer unlock()
	return s.ApplyLot(ctx, p, lot)
}

// ApplyLot is AddLot for callers already holding the portfolio lock.
func (s *Service) ApplyLot(ctx context.Context, p *models.Portfolio, lot models.Lot) (*models.Investment, error) {
	lot, err := normalizeLot(lot)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.InvestmentStore().ListByPortfolio(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	existing := portfolio.GroupBySymbol(rows)[lot.Symbol]
	now := s.now()

	price := lot.CurrentPrice
	if price == 0 {
		price = lot.Price
	}

	if len(existing) == 0 {
		inv := &models.Investment{
			ID:              uuid.New().String(),
			UserID:          p.UserID,
			PortfolioID:     p.ID,
			Symbol:          lot.Symbol,
			Shares:          lot.Shares,
			AvgCostPerShare: lot.Price,
			CurrentPrice:    price,
			TotalValue:      common.RoundCash(lot.Shares * price),
			InvestmentType:  lot.InvestmentType,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.storage.InvestmentStore().Create(ctx, inv); err != nil {
			return nil, err
		}
		s.logger.Debug().
			Str("portfolio", p.ID).
			Str("symbol", inv.Symbol).
			Float64("shares", inv.Shares).
			Msg("Position opened")
		return inv, nil
	}

	if len(existing) > 1 {
		s.logger.Warn().
			Str("portfolio", p.ID).
			Str("symbol", lot.Symbol).
			Int("rows", len(existing)).
			Msg("Duplicate positions present; merging into oldest row")
	}

	inv := existing[0]
	oldShares := decimal.NewFromFloat(inv.Shares)
	addShares := decimal.NewFromFloat(lot.Shares)
	totalShares := oldShares.Add(addShares)
	cost := oldShares.Mul(decimal.NewFromFloat(inv.AvgCostPerShare)).
		Add(addShares.Mul(decimal.NewFromFloat(lot.Price)))

	inv.Shares, _ = totalShares.Round(common.SharePlaces).Float64()
	inv.AvgCostPerShare, _ = cost.Div(totalShares).Round(common.SharePlaces).Float64()
	inv.CurrentPrice = price
	inv.TotalValue = common.RoundCash(inv.Shares * price)
	if inv.InvestmentType == "" {
		inv.InvestmentType = lot.InvestmentType
	}
	inv.UpdatedAt = now

	if err := s.storage.InvestmentStore().Update(ctx, &inv); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("portfolio", p.ID).
		Str("symbol", inv.Symbol).
		Float64("shares", inv.Shares).
		Float64("avg_cost", inv.AvgCostPerShare).
		Msg("Lot merged into position")
	return &inv, nil
}

// Positions lists the portfolio's rows, oldest first.
func (s *Service) Positions(ctx context.Context, portfolioID string) ([]models.Investment, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.InvestmentStore().ListByPortfolio(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	groups := portfolio.GroupBySymbol(rows)
	out := make([]models.Investment, 0, len(rows))
	for _, symbol := range sortedSymbols(groups) {
		out = append(out, groups[symbol]...)
	}
	return out, nil
}

// Duplicates reports symbols held in more than one row.
func (s *Service) Duplicates(ctx context.Context, portfolioID string) (models.IntegrityWarning, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.InvestmentStore().ListByPortfolio(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return portfolio.FindDuplicates(rows), nil
}

// Consolidate merges duplicate rows into the oldest row of each symbol.
// Shares and total cost are preserved. Running it twice changes nothing.
func (s *Service) Consolidate(ctx context.Context, portfolioID string) (*models.ConsolidationReport, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}

	unlock := s.Lock(p.ID)
	defer unlock()

	rows, err := s.storage.InvestmentStore().ListByPortfolio(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	report := &models.ConsolidationReport{}
	groups := portfolio.GroupBySymbol(rows)
	for _, symbol := range sortedSymbols(groups) {
		group := groups[symbol]
		if len(group) < 2 {
			continue
		}

		merged := mergeGroup(group)
		merged.UpdatedAt = s.now()
		deleteIDs := make([]string, 0, len(group)-1)
		for _, dup := range group[1:] {
			deleteIDs = append(deleteIDs, dup.ID)
		}
		// A failed group leaves its rows untouched, so a retry merges from the original rows.
		if err := s.storage.InvestmentStore().ReplaceGroup(ctx, &merged, deleteIDs); err != nil {
			return report, fmt.Errorf("failed to consolidate %s: %w", symbol, err)
		}
		report.RowsDeleted += len(deleteIDs)
		report.GroupsMerged++
		report.Symbols = append(report.Symbols, symbol)
	}

	if report.GroupsMerged > 0 {
		s.logger.Info().
			Str("portfolio", p.ID).
			Int("groups", report.GroupsMerged).
			Int("rows_deleted", report.RowsDeleted).
			Strs("symbols", report.Symbols).
			Msg("Positions consolidated")
	}
	return report, nil
}

// mergeGroup folds a symbol group (oldest first) into its oldest row.
func mergeGroup(group []models.Investment) models.Investment {
	canonical := group[0]

	shares := decimal.Zero
	cost := decimal.Zero
	for _, r := range group {
		sh := decimal.NewFromFloat(r.Shares)
		shares = shares.Add(sh)
		cost = cost.Add(sh.Mul(decimal.NewFromFloat(r.AvgCostPerShare)))
		if canonical.InvestmentType == "" {
			canonical.InvestmentType = r.InvestmentType
		}
	}

	canonical.Shares, _ = shares.Round(common.SharePlaces).Float64()
	if shares.IsPositive() {
		canonical.AvgCostPerShare, _ = cost.Div(shares).Round(common.SharePlaces).Float64()
	}

	price := canonical.CurrentPrice
	if price <= 0 {
		var newest time.Time
		for _, r := range group {
			if r.CurrentPrice > 0 && !r.UpdatedAt.Before(newest) {
				price = r.CurrentPrice
				newest = r.UpdatedAt
			}
		}
	}
	if price <= 0 {
		price = canonical.AvgCostPerShare
	}
	canonical.CurrentPrice = price
	canonical.TotalValue = common.RoundCash(canonical.Shares * price)
	return canonical
}

// Reprice sets the current price of every row whose symbol has a quote.
// Symbols without a quote keep their previous price.
func (s *Service) Reprice(ctx context.Context, portfolioID string, prices map[string]float64) ([]models.Investment, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	quotes := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return nil, models.NewValidationError(symbol, "price must be positive")
		}
		quotes[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}

	unlock := s.Lock(p.ID)
	defer unlock()

	rows, err := s.storage.InvestmentStore().ListByPortfolio(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated := make([]models.Investment, 0, len(rows))
	for i := range rows {
		price, ok := quotes[rows[i].Symbol]
		if !ok {
			continue
		}
		rows[i].CurrentPrice = price
		rows[i].TotalValue = common.RoundCash(rows[i].Shares * price)
		rows[i].UpdatedAt = now
		if err := s.storage.InvestmentStore().Update(ctx, &rows[i]); err != nil {
			return updated, err
		}
		updated = append(updated, rows[i])
	}
	return updated, nil
}

func sortedSymbols(groups map[string][]models.Investment) []string {
	symbols := make([]string, 0, len(groups))
	for k := range groups {
		symbols = append(symbols, k)
	}
	sort.Strings(symbols)
	return symbols
}
