package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, *badger.Store) {
	t.Helper()
	store, err := badger.NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.PortfolioStore().Create(ctx, &models.Portfolio{
		ID: "p1", UserID: "default", Name: "Main Portfolio", AllocationStrategy: models.DefaultAllocation(), IsActive: true,
	}))
	return NewService(store, common.NewSilentLogger()), store
}

func seedRow(t *testing.T, store *badger.Store, id string, createdAt time.Time, shares, avg, price float64) {
	t.Helper()
	require.NoError(t, store.InvestmentStore().Create(context.Background(), &models.Investment{
		ID: id, UserID: "default", PortfolioID: "p1", Symbol: "AAPL",
		Shares: shares, AvgCostPerShare: avg, CurrentPrice: price, TotalValue: shares * price,
		InvestmentType: "stock", CreatedAt: createdAt, UpdatedAt: createdAt,
	}))
}

func TestAddLot_WeightedAverage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddLot(ctx, "p1", models.Lot{Symbol: "aapl", Shares: 2, Price: 100, InvestmentType: "stock"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)

	merged, err := svc.AddLot(ctx, "p1", models.Lot{Symbol: "AAPL", Shares: 3, Price: 120})
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5.0, merged.Shares)
	assert.Equal(t, 112.0, merged.AvgCostPerShare)
	assert.Equal(t, 120.0, merged.CurrentPrice)
	assert.Equal(t, 600.0, merged.TotalValue)
	assert.Equal(t, "stock", merged.InvestmentType)

	rows, err := svc.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestAddLot_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, lot := range []models.Lot{
		{Symbol: "", Shares: 1, Price: 1},
		{Symbol: "X", Shares: 0, Price: 1},
		{Symbol: "X", Shares: -1, Price: 1},
		{Symbol: "X", Shares: 1, Price: 0},
		{Symbol: "X", Shares: 0.0000001, Price: 1},
	} {
		_, err := svc.AddLot(ctx, "p1", lot)
		assert.True(t, models.IsValidation(err), "%+v", lot)
	}

	_, err := svc.AddLot(ctx, "missing", models.Lot{Symbol: "X", Shares: 1, Price: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddLot_ConcurrentSingleRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddLot(ctx, "p1", models.Lot{Symbol: "VTI", Shares: 1, Price: 100})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := svc.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(workers), rows[0].Shares)

	dups, err := svc.Duplicates(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, dups.Empty())
}

func TestConsolidate_MergesIntoOldest(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedRow(t, store, "newer", base.Add(time.Hour), 3, 120, 0)
	seedRow(t, store, "older", base, 2, 100, 110)

	dups, err := svc.Duplicates(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, []string{"older", "newer"}, dups[0].IDs)
	assert.Equal(t, 5.0, dups[0].TotalShares)

	report, err := svc.Consolidate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.GroupsMerged)
	assert.Equal(t, 1, report.RowsDeleted)
	assert.Equal(t, []string{"AAPL"}, report.Symbols)

	rows, err := svc.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "older", row.ID)
	assert.Equal(t, 5.0, row.Shares)
	assert.Equal(t, 112.0, row.AvgCostPerShare)
	assert.InDelta(t, 560.0, row.CostBasis(), 0.01, "total cost preserved")
	assert.Equal(t, 110.0, row.CurrentPrice)
	assert.Equal(t, 550.0, row.TotalValue)

	again, err := svc.Consolidate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.GroupsMerged)

	after, err := svc.Positions(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, rows[0].Shares, after[0].Shares)
	assert.Equal(t, rows[0].AvgCostPerShare, after[0].AvgCostPerShare)
}

// failingStorage fails the next ReplaceGroup call without writing anything.
type failingStorage struct {
	interfaces.StorageManager
	investments *failingInvestments
}

func (f *failingStorage) InvestmentStore() interfaces.InvestmentStore { return f.investments }

type failingInvestments struct {
	interfaces.InvestmentStore
	failNext bool
}

func (f *failingInvestments) ReplaceGroup(ctx context.Context, canonical *models.Investment, deleteIDs []string) error {
	if f.failNext {
		f.failNext = false
		return errors.New("delete failed")
	}
	return f.InvestmentStore.ReplaceGroup(ctx, canonical, deleteIDs)
}

func TestConsolidate_RetryAfterStoreFailure(t *testing.T) {
	_, store := newTestService(t)
	investments := &failingInvestments{InvestmentStore: store.InvestmentStore(), failNext: true}
	svc := NewService(&failingStorage{StorageManager: store, investments: investments}, common.NewSilentLogger())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedRow(t, store, "older", base, 2, 100, 110)
	seedRow(t, store, "newer", base.Add(time.Hour), 3, 120, 0)

	_, err := svc.Consolidate(ctx, "p1")
	require.Error(t, err)

	rows, err := svc.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2, "failed consolidation leaves both rows as they were")
	assert.Equal(t, 2.0, rows[0].Shares)
	assert.Equal(t, 3.0, rows[1].Shares)

	report, err := svc.Consolidate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.GroupsMerged)

	rows, err = svc.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5.0, rows[0].Shares)
	assert.Equal(t, 112.0, rows[0].AvgCostPerShare)
	assert.InDelta(t, 560.0, rows[0].CostBasis(), 0.01)
}

func TestConsolidate_PriceFallbacks(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	group := []models.Investment{
		{ID: "a", Symbol: "X", Shares: 1, AvgCostPerShare: 10, CreatedAt: base, UpdatedAt: base},
		{ID: "b", Symbol: "X", Shares: 1, AvgCostPerShare: 20, CurrentPrice: 15, CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)},
		{ID: "c", Symbol: "X", Shares: 2, AvgCostPerShare: 30, CurrentPrice: 18, CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base.Add(3 * time.Minute)},
	}
	merged := mergeGroup(group)
	assert.Equal(t, "a", merged.ID)
	assert.Equal(t, 4.0, merged.Shares)
	assert.Equal(t, 22.5, merged.AvgCostPerShare)
	assert.Equal(t, 18.0, merged.CurrentPrice, "newest quoted price wins when the oldest row has none")
	assert.Equal(t, 72.0, merged.TotalValue)

	unpriced := []models.Investment{
		{ID: "a", Symbol: "X", Shares: 1, AvgCostPerShare: 10},
		{ID: "b", Symbol: "X", Shares: 1, AvgCostPerShare: 30},
	}
	merged = mergeGroup(unpriced)
	assert.Equal(t, 20.0, merged.CurrentPrice)
	assert.Equal(t, 40.0, merged.TotalValue)
}

func TestAddLot_MergesIntoOldestWhenDuplicatesExist(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedRow(t, store, "older", base, 1, 100, 100)
	seedRow(t, store, "newer", base.Add(time.Hour), 1, 100, 100)

	inv, err := svc.AddLot(ctx, "p1", models.Lot{Symbol: "AAPL", Shares: 1, Price: 100})
	require.NoError(t, err)
	assert.Equal(t, "older", inv.ID)
	assert.Equal(t, 2.0, inv.Shares)
}

func TestReprice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddLot(ctx, "p1", models.Lot{Symbol: "VTI", Shares: 2, Price: 100})
	require.NoError(t, err)
	_, err = svc.AddLot(ctx, "p1", models.Lot{Symbol: "BND", Shares: 1, Price: 80})
	require.NoError(t, err)

	updated, err := svc.Reprice(ctx, "p1", map[string]float64{"vti": 110})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 220.0, updated[0].TotalValue)

	rows, err := svc.Positions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "BND", rows[0].Symbol)
	assert.Equal(t, 80.0, rows[0].CurrentPrice)

	_, err = svc.Reprice(ctx, "p1", map[string]float64{"VTI": -1})
	assert.True(t, models.IsValidation(err))
}

func TestPositions_OtherUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Positions(common.WithUserID(context.Background(), "mallory"), "p1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLocker_SerialisesPerKey(t *testing.T) {
	l := NewLocker()
	var mu sync.Mutex
	inside := map[string]int{}
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		key := fmt.Sprintf("k%d", i%2)
		go func() {
			defer wg.Done()
			unlock := l.Lock(key)
			mu.Lock()
			inside[key]++
			if inside[key] > maxInside {
				maxInside = inside[key]
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside[key]--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Empty(t, l.locks)
}
