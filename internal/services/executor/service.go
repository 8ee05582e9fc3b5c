// Package executor turns cash into lots across a portfolio's allocation buckets
package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/services/ledger"
	"github.com/bobmcallan/roundup/internal/services/portfolio"
)

// Compile-time interface check
var _ interfaces.ExecutorService = (*Service)(nil)

// Service implements ExecutorService
type Service struct {
	storage     interfaces.StorageManager
	ledger      *ledger.Service
	prices      interfaces.PriceSource
	instruments common.BucketInstruments
	logger      *common.Logger
	pools       *ledger.Locker
	now         func() time.Time
}

// NewService creates a new executor. prices may be nil, in which case the
// configured reference prices are used.
func NewService(storage interfaces.StorageManager, positions *ledger.Service, prices interfaces.PriceSource, instruments common.BucketInstruments, logger *common.Logger) *Service {
	return &Service{
		storage:     storage,
		ledger:      positions,
		prices:      prices,
		instruments: instruments,
		logger:      logger,
		pools:       ledger.NewLocker(),
		now:         time.Now,
	}
}

func (s *Service) instrument(b models.Bucket) common.InstrumentConfig {
	switch b {
	case models.BucketStocks:
		return s.instruments.Stocks
	case models.BucketBonds:
		return s.instruments.Bonds
	default:
		return s.instruments.ETFs
	}
}

// referencePrice asks the price source first and falls back to the configured price.
func (s *Service) referencePrice(ctx context.Context, inst common.InstrumentConfig) (float64, error) {
	if s.prices != nil {
		price, err := s.prices.GetReferencePrice(ctx, inst.Symbol)
		if err == nil && price > 0 && !math.IsInf(price, 0) {
			return price, nil
		}
		s.logger.Warn().
			Str("symbol", inst.Symbol).
			Err(err).
			Float64("fallback", inst.ReferencePrice).
			Msg("Price lookup failed; using configured reference price")
	}
	if inst.ReferencePrice <= 0 {
		return 0, fmt.Errorf("no reference price for %s", inst.Symbol)
	}
	return inst.ReferencePrice, nil
}

// splitCash divides amount by weight, in cents. The rounding residual goes to
// the heaviest bucket so the parts always sum to amount.
func splitCash(amount float64, a models.Allocation) map[models.Bucket]float64 {
	total := decimal.NewFromFloat(amount)
	parts := make(map[models.Bucket]decimal.Decimal)
	sum := decimal.Zero
	var heaviest models.Bucket
	for _, b := range models.Buckets {
		w := a.Get(b)
		if w <= 0 {
			continue
		}
		part := total.Mul(decimal.NewFromFloat(w)).Div(decimal.NewFromInt(100)).Round(common.CashPlaces)
		parts[b] = part
		sum = sum.Add(part)
		if heaviest == "" || w > a.Get(heaviest) {
			heaviest = b
		}
	}
	if heaviest != "" {
		parts[heaviest] = parts[heaviest].Add(total.Sub(sum))
	}

	out := make(map[models.Bucket]float64, len(parts))
	for b, d := range parts {
		out[b], _ = d.Float64()
	}
	return out
}

// Execute invests req.Amount across the portfolio's buckets. Lots already
// applied are kept when a later bucket fails; the result is then returned
// together with a PartialExecutionError and contributing transactions stay pending.
func (s *Service) Execute(ctx context.Context, req interfaces.ExecuteRequest) (*models.ExecutionResult, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, models.NewValidationError("amount", "must be positive")
	}
	amount := common.RoundCash(req.Amount)
	if amount <= 0 {
		return nil, models.NewValidationError("amount", "must be at least 0.01")
	}

	p, err := s.loadInvestable(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockRun(ctx, p.ID)
	defer unlock()

	// Contributors are checked under the lock so a concurrent run cannot invest them twice.
	contributors, err := s.loadContributors(ctx, req.TransactionIDs)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, p.ID, amount, contributors)
}

// InvestPending invests the user's whole pending round-up pool.
func (s *Service) InvestPending(ctx context.Context, portfolioID string) (*models.ExecutionResult, error) {
	p, err := s.loadInvestable(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockRun(ctx, p.ID)
	defer unlock()

	txs, err := s.storage.TransactionStore().ListPending(ctx, common.ResolveUserID(ctx))
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	var ids []string
	for _, tx := range txs {
		if !tx.Pending() {
			continue
		}
		total = total.Add(decimal.NewFromFloat(tx.RoundUpAmount))
		ids = append(ids, tx.ID)
	}
	amount, _ := total.Round(common.CashPlaces).Float64()
	if amount <= 0 {
		return nil, models.NewValidationError("amount", "no pending round-ups to invest")
	}
	return s.run(ctx, p.ID, amount, ids)
}

func (s *Service) loadInvestable(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	p, err := portfolio.LoadOwned(ctx, s.storage, portfolioID)
	if err != nil {
		return nil, err
	}
	if err := p.AllocationStrategy.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// lockRun serialises runs over the user's round-up pool, then over the
// portfolio's positions. The order is fixed so two runs cannot deadlock.
func (s *Service) lockRun(ctx context.Context, portfolioID string) func() {
	unlockPool := s.pools.Lock(common.ResolveUserID(ctx))
	unlockPortfolio := s.ledger.Lock(portfolioID)
	return func() {
		unlockPortfolio()
		unlockPool()
	}
}

// run places the lots. The caller holds lockRun.
func (s *Service) run(ctx context.Context, portfolioID string, amount float64, contributors []string) (*models.ExecutionResult, error) {
	p, err := s.storage.PortfolioStore().Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	result := &models.ExecutionResult{
		PortfolioID:    p.ID,
		Amount:         amount,
		TransactionIDs: contributors,
		ExecutedAt:     s.now(),
	}

	carried := carryFor(p.Carry, contributors)
	cash := splitCash(amount, p.AllocationStrategy)
	applied := decimal.Zero
	carriedTotal := decimal.Zero
	invested := make(map[models.Bucket]float64)
	partial := &models.PartialExecutionError{Failed: map[models.Bucket]error{}}
	for _, b := range models.Buckets {
		bucketCash, ok := cash[b]
		if !ok {
			continue
		}
		inst := s.instrument(b)
		exec := models.BucketExecution{Bucket: b, Symbol: inst.Symbol, Cash: bucketCash}

		if c := carried[b]; c > 0 {
			exec.Carried = math.Min(c, bucketCash)
			exec.Cash, _ = decimal.NewFromFloat(bucketCash).Sub(decimal.NewFromFloat(exec.Carried)).Float64()
			carriedTotal = carriedTotal.Add(decimal.NewFromFloat(exec.Carried))
			invested[b] = exec.Carried
		}
		if exec.Cash <= 0 {
			exec.Cash = 0
			partial.Succeeded = append(partial.Succeeded, b)
			result.Buckets = append(result.Buckets, exec)
			continue
		}

		if err := s.applyBucket(ctx, p, inst, &exec); err != nil {
			exec.Error = err.Error()
			partial.Failed[b] = err
			s.logger.Warn().Str("portfolio", p.ID).Str("bucket", string(b)).Err(err).Msg("Bucket investment failed")
		} else {
			partial.Succeeded = append(partial.Succeeded, b)
			applied = applied.Add(decimal.NewFromFloat(exec.Cash))
			invested[b], _ = decimal.NewFromFloat(invested[b]).Add(decimal.NewFromFloat(exec.Cash)).Float64()
		}
		result.Buckets = append(result.Buckets, exec)
	}

	result.AppliedCash, _ = applied.Float64()
	result.CarriedCash, _ = carriedTotal.Float64()

	carryBefore := p.Carry
	switch {
	case len(partial.Failed) > 0 && len(contributors) > 0:
		p.Carry = nextCarry(p.Carry, carried != nil, contributors, invested)
	case len(partial.Failed) == 0 && carried != nil:
		p.Carry = nil
	}
	if applied.IsPositive() || p.Carry != carryBefore {
		total, _ := decimal.NewFromFloat(p.RoundUpsInvested).Add(applied).Float64()
		p.RoundUpsInvested = total
		if err := s.storage.PortfolioStore().Update(ctx, p); err != nil {
			return result, fmt.Errorf("lots applied but portfolio counter not updated: %w", err)
		}
	}

	if len(partial.Failed) > 0 {
		s.logger.Warn().
			Str("portfolio", p.ID).
			Float64("amount", amount).
			Float64("applied", result.AppliedCash).
			Msg(partial.Error())
		return result, partial
	}

	marked, err := s.markInvested(ctx, contributors, result.ExecutedAt)
	result.MarkedInvested = marked
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Str("portfolio", p.ID).
		Float64("amount", amount).
		Float64("carried", result.CarriedCash).
		Int("buckets", len(result.Buckets)).
		Int("transactions", marked).
		Msg("Round-ups invested")
	return result, nil
}

// carryFor returns the bucket cash already invested for contributors, or nil
// when the carry covers transactions outside this run.
func carryFor(c *models.ExecutionCarry, contributors []string) map[models.Bucket]float64 {
	if c == nil || len(c.TransactionIDs) == 0 {
		return nil
	}
	in := make(map[string]bool, len(contributors))
	for _, id := range contributors {
		in[id] = true
	}
	for _, id := range c.TransactionIDs {
		if !in[id] {
			return nil
		}
	}
	return c.Applied
}

// nextCarry records what a partial run invested. An earlier carry this run
// could not use is merged in, so its cash is credited once both sets run together.
func nextCarry(prev *models.ExecutionCarry, used bool, contributors []string, invested map[models.Bucket]float64) *models.ExecutionCarry {
	next := &models.ExecutionCarry{
		TransactionIDs: append([]string(nil), contributors...),
		Applied:        make(map[models.Bucket]float64, len(invested)),
	}
	for b, v := range invested {
		if v > 0 {
			next.Applied[b] = v
		}
	}
	if prev == nil || used {
		if len(next.Applied) == 0 {
			return prev
		}
		return next
	}
	if len(next.Applied) == 0 {
		return prev
	}

	seen := make(map[string]bool, len(next.TransactionIDs))
	for _, id := range next.TransactionIDs {
		seen[id] = true
	}
	for _, id := range prev.TransactionIDs {
		if !seen[id] {
			next.TransactionIDs = append(next.TransactionIDs, id)
		}
	}
	for b, v := range prev.Applied {
		next.Applied[b], _ = decimal.NewFromFloat(next.Applied[b]).Add(decimal.NewFromFloat(v)).Float64()
	}
	return next
}

func (s *Service) applyBucket(ctx context.Context, p *models.Portfolio, inst common.InstrumentConfig, exec *models.BucketExecution) error {
	price, err := s.referencePrice(ctx, inst)
	if err != nil {
		return err
	}
	exec.Price = price
	exec.Shares = common.RoundShares(exec.Cash / price)
	if exec.Shares <= 0 {
		return fmt.Errorf("%.2f buys no shares of %s at %.2f", exec.Cash, inst.Symbol, price)
	}
	_, err = s.ledger.ApplyLot(ctx, p, models.Lot{
		Symbol:         inst.Symbol,
		Shares:         exec.Shares,
		Price:          price,
		InvestmentType: inst.InvestmentType,
	})
	return err
}

// loadContributors checks the transactions belong to the user and are still
// pending. Transactions without a round-up are not contributors.
func (s *Service) loadContributors(ctx context.Context, ids []string) ([]string, error) {
	userID := common.ResolveUserID(ctx)
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		tx, err := s.storage.TransactionStore().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if tx.UserID != userID {
			return nil, fmt.Errorf("transaction '%s': %w", id, models.ErrNotFound)
		}
		if tx.IsRoundUpInvested {
			return nil, models.NewValidationError("transaction_ids", fmt.Sprintf("transaction %s is already invested", id))
		}
		if tx.RoundUpAmount > 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Service) markInvested(ctx context.Context, ids []string, at time.Time) (int, error) {
	marked := 0
	var errs []error
	for _, id := range ids {
		flipped, err := s.storage.TransactionStore().MarkInvested(ctx, id, at)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", id, err))
			continue
		}
		if flipped {
			marked++
		}
	}
	return marked, errors.Join(errs...)
}

// RefreshPrices quotes every held symbol and reprices the positions.
// Symbols the source cannot quote keep their last price.
func (s *Service) RefreshPrices(ctx context.Context, portfolioID string) ([]models.Investment, error) {
	if s.prices == nil {
		return nil, models.NewValidationError("pricing", "no price source configured")
	}
	rows, err := s.ledger.Positions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]float64)
	for _, r := range rows {
		if _, ok := quotes[r.Symbol]; ok {
			continue
		}
		price, err := s.prices.GetReferencePrice(ctx, r.Symbol)
		if err != nil || price <= 0 {
			s.logger.Warn().Str("symbol", r.Symbol).Err(err).Msg("No quote; keeping last price")
			continue
		}
		quotes[r.Symbol] = price
	}
	if len(quotes) == 0 {
		return []models.Investment{}, nil
	}
	return s.ledger.Reprice(ctx, portfolioID, quotes)
}
