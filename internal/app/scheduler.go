package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
)

// AutoInvestor invests pending round-ups on a cron schedule.
type AutoInvestor struct {
	cfg          common.AutoInvestConfig
	transactions interfaces.TransactionService
	portfolios   interfaces.PortfolioService
	executor     interfaces.ExecutorService
	logger       *common.Logger
	cron         *cron.Cron
}

// NewAutoInvestor creates a stopped AutoInvestor.
func NewAutoInvestor(cfg common.AutoInvestConfig, transactions interfaces.TransactionService, portfolios interfaces.PortfolioService, exec interfaces.ExecutorService, logger *common.Logger) *AutoInvestor {
	return &AutoInvestor{
		cfg:          cfg,
		transactions: transactions,
		portfolios:   portfolios,
		executor:     exec,
		logger:       logger,
		cron:         cron.New(),
	}
}

// Start registers the job and starts the cron loop.
func (a *AutoInvestor) Start() error {
	_, err := a.cron.AddFunc(a.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		a.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	a.cron.Start()
	a.logger.Info().
		Str("schedule", a.cfg.Schedule).
		Strs("users", a.cfg.UserIDs).
		Float64("min_amount", a.cfg.MinAmount).
		Msg("Auto-invest scheduler started")
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (a *AutoInvestor) Stop(ctx context.Context) {
	done := a.cron.Stop()
	select {
	case <-done.Done():
		a.logger.Info().Msg("Auto-invest scheduler: stopped")
	case <-ctx.Done():
		a.logger.Warn().Msg("Auto-invest scheduler: stop timed out")
	}
}

// RunOnce invests each configured user's pending pool into their active
// portfolio when it has reached the minimum amount. Returns the runs made.
func (a *AutoInvestor) RunOnce(ctx context.Context) []*models.ExecutionResult {
	var results []*models.ExecutionResult
	for _, userID := range a.cfg.UserIDs {
		uctx := common.WithUserID(ctx, userID)

		pool, err := a.transactions.Pending(uctx)
		if err != nil {
			a.logger.Warn().Str("user", userID).Err(err).Msg("Auto-invest: pending pool unavailable")
			continue
		}
		if pool.Count == 0 || pool.Total < a.cfg.MinAmount {
			a.logger.Debug().
				Str("user", userID).
				Float64("pending", pool.Total).
				Msg("Auto-invest: below minimum, skipped")
			continue
		}

		p, err := a.portfolios.Active(uctx)
		if err != nil {
			a.logger.Warn().Str("user", userID).Err(err).Msg("Auto-invest: no active portfolio")
			continue
		}

		res, err := a.executor.InvestPending(uctx, p.ID)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			a.logger.Warn().Str("user", userID).Str("portfolio", p.ID).Err(err).Msg("Auto-invest: run failed")
			continue
		}
		a.logger.Info().
			Str("user", userID).
			Str("portfolio", p.ID).
			Float64("amount", res.Amount).
			Int("transactions", res.MarkedInvested).
			Msg("Auto-invest: round-ups invested")
	}
	return results
}
