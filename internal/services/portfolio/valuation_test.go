package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/roundup/internal/models"
)

func TestValuate(t *testing.T) {
	p := &models.Portfolio{ID: "p1", Name: "Main Portfolio", CashBalance: 50, RoundUpsInvested: 100}
	positions := []models.Investment{
		{ID: "a", Symbol: "VTI", Shares: 0.7, AvgCostPerShare: 100, CurrentPrice: 110, TotalValue: 77, InvestmentType: "etf"},
		{ID: "b", Symbol: "BND", Shares: 0.25, AvgCostPerShare: 80, CurrentPrice: 80, InvestmentType: "etf"},
		{ID: "c", Symbol: "AAPL", Shares: 2, AvgCostPerShare: 150, InvestmentType: "stock"},
	}

	v := Valuate(p, positions)

	assert.Equal(t, 390.0, v.CostBasis)     // 70 + 20 + 300
	assert.Equal(t, 397.0, v.CurrentValue)  // 77 + 20 + 300 (AAPL falls back to cost)
	assert.Equal(t, 7.0, v.GainLoss)
	assert.Equal(t, 1.79, v.GainLossPct)
	assert.Equal(t, 447.0, v.DisplayTotal)
	assert.Equal(t, 100.0, v.RoundUpsInvested, "counter is reported, not used for value")
	assert.Equal(t, map[string]float64{"etf": 97, "stock": 300}, v.ByType)
	require.Len(t, v.Positions, 3)
	assert.Equal(t, "AAPL", v.Positions[0].Symbol, "largest first")
	assert.Equal(t, 10.0, v.Positions[1].GainLossPct)
	assert.True(t, v.Warnings.Empty())
}

func TestValuate_EmptyPortfolio(t *testing.T) {
	v := Valuate(&models.Portfolio{ID: "p1", CashBalance: 12.5}, nil)
	assert.Equal(t, 0.0, v.CostBasis)
	assert.Equal(t, 0.0, v.GainLossPct, "no division by zero cost")
	assert.Equal(t, 12.5, v.DisplayTotal)
	assert.Empty(t, v.Positions)
}

func TestFindDuplicates(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	positions := []models.Investment{
		{ID: "z", Symbol: "AAPL", Shares: 3, CreatedAt: t0.Add(time.Hour)},
		{ID: "y", Symbol: "AAPL", Shares: 2, CreatedAt: t0},
		{ID: "x", Symbol: "VTI", Shares: 1, CreatedAt: t0},
	}

	w := FindDuplicates(positions)
	require.Len(t, w, 1)
	assert.Equal(t, "AAPL", w[0].Symbol)
	assert.Equal(t, []string{"y", "z"}, w[0].IDs, "oldest first")
	assert.Equal(t, 5.0, w[0].TotalShares)

	v := Valuate(&models.Portfolio{ID: "p1"}, positions)
	assert.Len(t, v.Warnings, 1)
}

func TestGroupBySymbol_TieBreaksOnID(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	groups := GroupBySymbol([]models.Investment{
		{ID: "b", Symbol: "SPY", CreatedAt: t0},
		{ID: "a", Symbol: "SPY", CreatedAt: t0},
	})
	assert.Equal(t, "a", groups["SPY"][0].ID)
}
