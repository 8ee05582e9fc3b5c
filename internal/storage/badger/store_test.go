package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_OpenClose(t *testing.T) {
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	assert.NotNil(t, store.TransactionStore())
	assert.NotNil(t, store.PortfolioStore())
	assert.NotNil(t, store.InvestmentStore())
	assert.NotNil(t, store.RiskAssessmentStore())
	require.NoError(t, store.Close())
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{}
	assert.NoError(t, store.Close())
}

func TestTransactionStore_CreateListPending(t *testing.T) {
	ts := newTestStore(t).TransactionStore()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, ts.Create(ctx, &models.Transaction{ID: "t1", UserID: "alice", Amount: -4.35, RoundUpAmount: 0.65, Date: now}))
	require.NoError(t, ts.Create(ctx, &models.Transaction{ID: "t2", UserID: "alice", Amount: -3, Date: now}))
	require.NoError(t, ts.Create(ctx, &models.Transaction{ID: "t3", UserID: "bob", Amount: -1.5, RoundUpAmount: 0.5, Date: now}))

	all, err := ts.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := ts.ListPending(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, pending, 2, "store returns every un-invested row; zero round-ups are filtered by the service")

	got, err := ts.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0.65, got.RoundUpAmount)

	_, err = ts.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTransactionStore_MarkInvestedFlipsOnce(t *testing.T) {
	ts := newTestStore(t).TransactionStore()
	ctx := context.Background()
	require.NoError(t, ts.Create(ctx, &models.Transaction{ID: "t1", UserID: "alice", Amount: -4.35, RoundUpAmount: 0.65}))

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	flipped, err := ts.MarkInvested(ctx, "t1", at)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = ts.MarkInvested(ctx, "t1", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, flipped)

	got, err := ts.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.IsRoundUpInvested)
	require.NotNil(t, got.InvestedAt)
	assert.True(t, got.InvestedAt.Equal(at), "second call must not move the timestamp")

	pending, err := ts.ListPending(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = ts.MarkInvested(ctx, "missing", at)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPortfolioStore_CRUD(t *testing.T) {
	ps := newTestStore(t).PortfolioStore()
	ctx := context.Background()

	p := &models.Portfolio{ID: "p1", UserID: "alice", Name: "Main Portfolio", AllocationStrategy: models.DefaultAllocation(), IsActive: true}
	require.NoError(t, ps.Create(ctx, p))
	assert.False(t, p.CreatedAt.IsZero())

	p.CashBalance = 25
	require.NoError(t, ps.Update(ctx, p))

	got, err := ps.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.CashBalance)
	assert.Equal(t, models.DefaultAllocation(), got.AllocationStrategy)

	list, err := ps.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = ps.ListByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)

	err = ps.Update(ctx, &models.Portfolio{ID: "nope"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInvestmentStore_AllowsDuplicateSymbols(t *testing.T) {
	is := newTestStore(t).InvestmentStore()
	ctx := context.Background()

	require.NoError(t, is.Create(ctx, &models.Investment{ID: "i1", PortfolioID: "p1", Symbol: "AAPL", Shares: 2, AvgCostPerShare: 100}))
	require.NoError(t, is.Create(ctx, &models.Investment{ID: "i2", PortfolioID: "p1", Symbol: "AAPL", Shares: 3, AvgCostPerShare: 120}))
	require.NoError(t, is.Create(ctx, &models.Investment{ID: "i3", PortfolioID: "p2", Symbol: "AAPL", Shares: 1, AvgCostPerShare: 90}))

	rows, err := is.ListByPortfolio(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, is.Delete(ctx, "i2"))
	require.NoError(t, is.Delete(ctx, "i2"), "deleting a missing row is not an error")

	rows, err = is.ListByPortfolio(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows[0].Shares = 5
	require.NoError(t, is.Update(ctx, &rows[0]))
	got, err := is.Get(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Shares)
}

func TestInvestmentStore_ReplaceGroup(t *testing.T) {
	is := newTestStore(t).InvestmentStore()
	ctx := context.Background()

	require.NoError(t, is.Create(ctx, &models.Investment{ID: "i1", PortfolioID: "p1", Symbol: "AAPL", Shares: 2, AvgCostPerShare: 100}))
	require.NoError(t, is.Create(ctx, &models.Investment{ID: "i2", PortfolioID: "p1", Symbol: "AAPL", Shares: 3, AvgCostPerShare: 120}))

	// The missing canonical row aborts the whole transaction, deletes included.
	err := is.ReplaceGroup(ctx, &models.Investment{ID: "ghost", PortfolioID: "p1", Symbol: "AAPL", Shares: 5}, []string{"i2"})
	assert.ErrorIs(t, err, models.ErrNotFound)
	rows, err := is.ListByPortfolio(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	merged := &models.Investment{ID: "i1", PortfolioID: "p1", Symbol: "AAPL", Shares: 5, AvgCostPerShare: 112}
	require.NoError(t, is.ReplaceGroup(ctx, merged, []string{"i2"}))
	rows, err = is.ListByPortfolio(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "i1", rows[0].ID)
	assert.Equal(t, 5.0, rows[0].Shares)
	assert.Equal(t, 112.0, rows[0].AvgCostPerShare)
}

func TestRiskAssessmentStore_Latest(t *testing.T) {
	rs := newTestStore(t).RiskAssessmentStore()
	ctx := context.Background()

	_, err := rs.Latest(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rs.Create(ctx, &models.RiskAssessment{ID: "a1", UserID: "alice", RiskCategory: models.RiskConservative, CompletedAt: base}))
	require.NoError(t, rs.Create(ctx, &models.RiskAssessment{ID: "a2", UserID: "alice", RiskCategory: models.RiskAggressive, CompletedAt: base.Add(24 * time.Hour)}))

	latest, err := rs.Latest(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a2", latest.ID)

	all, err := rs.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
