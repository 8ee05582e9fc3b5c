package executor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/services/ledger"
	"github.com/bobmcallan/roundup/internal/storage/badger"
)

type mockPriceSource struct {
	prices map[string]float64
	errs   map[string]error
	calls  int
}

func (m *mockPriceSource) GetReferencePrice(_ context.Context, symbol string) (float64, error) {
	m.calls++
	if err, ok := m.errs[symbol]; ok {
		return 0, err
	}
	if p, ok := m.prices[symbol]; ok {
		return p, nil
	}
	return 0, errors.New("unknown symbol")
}

type fixture struct {
	svc    *Service
	store  *badger.Store
	ledger *ledger.Service
}

func newFixture(t *testing.T, prices interfaces.PriceSource, instruments common.BucketInstruments) *fixture {
	t.Helper()
	store, err := badger.NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.PortfolioStore().Create(context.Background(), &models.Portfolio{
		ID: "p1", UserID: "default", Name: "Main Portfolio", AllocationStrategy: models.DefaultAllocation(), IsActive: true,
	}))

	logger := common.NewSilentLogger()
	l := ledger.NewService(store, logger)
	return &fixture{
		svc:    NewService(store, l, prices, instruments, logger),
		store:  store,
		ledger: l,
	}
}

func defaultInstruments() common.BucketInstruments {
	return common.NewDefaultConfig().Investing.Buckets
}

func seedTransaction(t *testing.T, store *badger.Store, id string, roundUp float64) {
	t.Helper()
	require.NoError(t, store.TransactionStore().Create(context.Background(), &models.Transaction{
		ID: id, UserID: "default", Amount: -1, Description: id,
		Date: time.Now(), RoundUpAmount: roundUp, CreatedAt: time.Now(),
	}))
}

func TestExecute_ReferenceScenario(t *testing.T) {
	f := newFixture(t, nil, defaultInstruments())
	ctx := context.Background()
	seedTransaction(t, f.store, "t1", 60)
	seedTransaction(t, f.store, "t2", 40)

	res, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 100, TransactionIDs: []string{"t1", "t2"}})
	require.NoError(t, err)
	require.Len(t, res.Buckets, 3)
	assert.Equal(t, 100.0, res.AppliedCash)
	assert.Equal(t, 2, res.MarkedInvested)

	want := map[string][2]float64{"VTI": {0.7, 100}, "BND": {0.25, 80}, "SPY": {0.025, 400}}
	rows, err := f.ledger.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		w := want[r.Symbol]
		assert.Equal(t, w[0], r.Shares, r.Symbol)
		assert.Equal(t, w[1], r.AvgCostPerShare, r.Symbol)
		assert.Equal(t, "etf", r.InvestmentType)
	}

	for _, id := range []string{"t1", "t2"} {
		tx, err := f.store.TransactionStore().Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, tx.IsRoundUpInvested, id)
		assert.NotNil(t, tx.InvestedAt)
	}

	p, err := f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.RoundUpsInvested)
}

func TestExecute_UsesPriceSourceAndFallsBack(t *testing.T) {
	prices := &mockPriceSource{
		prices: map[string]float64{"VTI": 140},
		errs:   map[string]error{"BND": errors.New("rate limited")},
	}
	f := newFixture(t, prices, defaultInstruments())

	res, err := f.svc.Execute(context.Background(), interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 14})
	require.NoError(t, err)
	byBucket := map[models.Bucket]models.BucketExecution{}
	for _, b := range res.Buckets {
		byBucket[b.Bucket] = b
	}
	assert.Equal(t, 140.0, byBucket[models.BucketStocks].Price)
	assert.Equal(t, 0.07, byBucket[models.BucketStocks].Shares)
	assert.Equal(t, 80.0, byBucket[models.BucketBonds].Price, "configured price on lookup failure")
	assert.Equal(t, 400.0, byBucket[models.BucketETFs].Price)
	assert.Equal(t, 3, prices.calls)
}

func TestExecute_PartialFailure(t *testing.T) {
	instruments := defaultInstruments()
	instruments.Bonds.ReferencePrice = 0
	prices := &mockPriceSource{
		prices: map[string]float64{"VTI": 100, "SPY": 400},
		errs:   map[string]error{"BND": errors.New("delisted")},
	}
	f := newFixture(t, prices, instruments)
	ctx := context.Background()
	seedTransaction(t, f.store, "t1", 0.5)

	res, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 100, TransactionIDs: []string{"t1"}})
	require.Error(t, err)

	var partial *models.PartialExecutionError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []models.Bucket{models.BucketStocks, models.BucketETFs}, partial.Succeeded)
	assert.Contains(t, partial.Failed, models.BucketBonds)
	assert.Contains(t, err.Error(), "2 of 3 buckets invested")

	require.NotNil(t, res)
	assert.Equal(t, 80.0, res.AppliedCash)
	assert.Equal(t, 0, res.MarkedInvested)

	tx, err := f.store.TransactionStore().Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, tx.IsRoundUpInvested, "round-ups stay pending after a partial run")

	rows, err := f.ledger.Positions(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "applied lots are kept")

	p, err := f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, p.RoundUpsInvested)
}

func TestInvestPending_RetryBuysOnlyFailedBuckets(t *testing.T) {
	instruments := defaultInstruments()
	instruments.Bonds.ReferencePrice = 0
	prices := &mockPriceSource{
		prices: map[string]float64{"VTI": 100, "SPY": 400},
		errs:   map[string]error{"BND": errors.New("halted")},
	}
	f := newFixture(t, prices, instruments)
	ctx := context.Background()
	seedTransaction(t, f.store, "t1", 60)
	seedTransaction(t, f.store, "t2", 40)

	_, err := f.svc.InvestPending(ctx, "p1")
	var partial *models.PartialExecutionError
	require.ErrorAs(t, err, &partial)

	p, err := f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.Carry)
	assert.ElementsMatch(t, []string{"t1", "t2"}, p.Carry.TransactionIDs)
	assert.Equal(t, 70.0, p.Carry.Applied[models.BucketStocks])
	assert.Equal(t, 10.0, p.Carry.Applied[models.BucketETFs])

	delete(prices.errs, "BND")
	prices.prices["BND"] = 80

	res, err := f.svc.InvestPending(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Amount)
	assert.Equal(t, 20.0, res.AppliedCash)
	assert.Equal(t, 80.0, res.CarriedCash)
	assert.Equal(t, 2, res.MarkedInvested)

	shares := map[string]float64{}
	rows, err := f.ledger.Positions(ctx, "p1")
	require.NoError(t, err)
	for _, r := range rows {
		shares[r.Symbol] = r.Shares
	}
	assert.Equal(t, map[string]float64{"VTI": 0.7, "BND": 0.25, "SPY": 0.025}, shares)

	p, err = f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p.Carry)
	assert.Equal(t, 100.0, p.RoundUpsInvested)
}

func TestExecute_CarryIgnoredForOtherTransactions(t *testing.T) {
	f := newFixture(t, nil, defaultInstruments())
	ctx := context.Background()
	seedTransaction(t, f.store, "t1", 0.5)

	p, err := f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	p.Carry = &models.ExecutionCarry{TransactionIDs: []string{"other"}, Applied: map[models.Bucket]float64{models.BucketStocks: 7}}
	require.NoError(t, f.store.PortfolioStore().Update(ctx, p))

	res, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 10, TransactionIDs: []string{"t1"}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.AppliedCash)
	assert.Zero(t, res.CarriedCash)

	p, err = f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.Carry, "a carry for other transactions is kept")
	assert.Equal(t, []string{"other"}, p.Carry.TransactionIDs)
}

func TestExecute_RejectsBeforeMutation(t *testing.T) {
	f := newFixture(t, nil, defaultInstruments())
	ctx := context.Background()

	for _, amount := range []float64{0, -5, 0.001} {
		_, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: amount})
		assert.True(t, models.IsValidation(err), "amount %v", amount)
	}

	_, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "nope", Amount: 10})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 10, TransactionIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, models.ErrNotFound)

	rows, err := f.ledger.Positions(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecute_SkipsZeroWeightBuckets(t *testing.T) {
	f := newFixture(t, nil, defaultInstruments())
	ctx := context.Background()
	p, err := f.store.PortfolioStore().Get(ctx, "p1")
	require.NoError(t, err)
	p.AllocationStrategy = models.Allocation{Stocks: 35, Bonds: 65}
	require.NoError(t, f.store.PortfolioStore().Update(ctx, p))

	res, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 10})
	require.NoError(t, err)
	require.Len(t, res.Buckets, 2)
	assert.Equal(t, 3.5, res.Buckets[0].Cash)
	assert.Equal(t, 6.5, res.Buckets[1].Cash)
}

func TestInvestPending(t *testing.T) {
	f := newFixture(t, nil, defaultInstruments())
	ctx := context.Background()

	_, err := f.svc.InvestPending(ctx, "p1")
	assert.True(t, models.IsValidation(err), "nothing pending")

	seedTransaction(t, f.store, "t1", 0.65)
	seedTransaction(t, f.store, "t2", 0.6)
	seedTransaction(t, f.store, "whole", 0)

	res, err := f.svc.InvestPending(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1.25, res.Amount)
	assert.Equal(t, 2, res.MarkedInvested)
	assert.ElementsMatch(t, []string{"t1", "t2"}, res.TransactionIDs)

	_, err = f.svc.InvestPending(ctx, "p1")
	assert.True(t, models.IsValidation(err), "pool is empty after investing")
}

func TestSplitCash_SumsToAmount(t *testing.T) {
	parts := splitCash(1, models.Allocation{Stocks: 33.33, Bonds: 33.33, ETFs: 33.34})
	sum := 0.0
	for _, v := range parts {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 0.33, parts[models.BucketStocks])
	assert.Equal(t, 0.34, parts[models.BucketETFs])
}

func TestRefreshPrices(t *testing.T) {
	prices := &mockPriceSource{prices: map[string]float64{"VTI": 100, "BND": 80, "SPY": 400}}
	f := newFixture(t, prices, defaultInstruments())
	ctx := context.Background()

	_, err := f.svc.Execute(ctx, interfaces.ExecuteRequest{PortfolioID: "p1", Amount: 100})
	require.NoError(t, err)

	prices.prices["VTI"] = 110
	delete(prices.prices, "SPY")

	updated, err := f.svc.RefreshPrices(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	rows, err := f.ledger.Positions(ctx, "p1")
	require.NoError(t, err)
	for _, r := range rows {
		switch r.Symbol {
		case "VTI":
			assert.Equal(t, 77.0, r.TotalValue)
		case "SPY":
			assert.Equal(t, 400.0, r.CurrentPrice)
		}
	}

	noSource := newFixture(t, nil, defaultInstruments())
	_, err = noSource.svc.RefreshPrices(ctx, "p1")
	assert.True(t, models.IsValidation(err))
}
