package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/models"
)

// Valuate derives portfolio totals from its position rows. Nothing here is
// cached: the stored TotalValue of a row is only used as that row's market value.
func Valuate(p *models.Portfolio, positions []models.Investment) *models.Valuation {
	cost := decimal.Zero
	value := decimal.Zero
	byType := make(map[string]decimal.Decimal)

	rows := make([]models.PositionValue, 0, len(positions))
	for i := range positions {
		inv := &positions[i]
		c := decimal.NewFromFloat(inv.Shares).Mul(decimal.NewFromFloat(inv.AvgCostPerShare))
		v := decimal.NewFromFloat(inv.MarketValue())
		cost = cost.Add(c)
		value = value.Add(v)

		t := inv.InvestmentType
		if t == "" {
			t = "other"
		}
		byType[t] = byType[t].Add(v)

		cf, _ := c.Float64()
		vf, _ := v.Float64()
		rows = append(rows, models.PositionValue{
			Symbol:          inv.Symbol,
			InvestmentType:  t,
			Shares:          inv.Shares,
			AvgCostPerShare: inv.AvgCostPerShare,
			CurrentPrice:    inv.CurrentPrice,
			CostBasis:       common.RoundCash(cf),
			CurrentValue:    common.RoundCash(vf),
			GainLoss:        common.RoundCash(vf - cf),
			GainLossPct:     pct(vf-cf, cf),
		})
	}

	costF, _ := cost.Float64()
	valueF, _ := value.Float64()
	for i := range rows {
		if valueF > 0 {
			rows[i].Weight = common.RoundCash(rows[i].CurrentValue / valueF * 100)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CurrentValue != rows[j].CurrentValue {
			return rows[i].CurrentValue > rows[j].CurrentValue
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	types := make(map[string]float64, len(byType))
	for t, v := range byType {
		f, _ := v.Round(common.CashPlaces).Float64()
		types[t] = f
	}

	display, _ := value.Add(decimal.NewFromFloat(p.CashBalance)).Round(common.CashPlaces).Float64()

	return &models.Valuation{
		PortfolioID:      p.ID,
		Name:             p.Name,
		CostBasis:        common.RoundCash(costF),
		CurrentValue:     common.RoundCash(valueF),
		GainLoss:         common.RoundCash(valueF - costF),
		GainLossPct:      pct(valueF-costF, costF),
		CashBalance:      p.CashBalance,
		DisplayTotal:     display,
		RoundUpsInvested: p.RoundUpsInvested,
		ByType:           types,
		Positions:        rows,
		Warnings:         FindDuplicates(positions),
		ComputedAt:       time.Now(),
	}
}

// pct is gain over cost in percent, 0 when there is no cost.
func pct(gain, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return common.RoundCash(gain / cost * 100)
}

// FindDuplicates groups rows that share a symbol. Groups are ordered by symbol
// and IDs within a group oldest first.
func FindDuplicates(positions []models.Investment) models.IntegrityWarning {
	groups := GroupBySymbol(positions)
	var warning models.IntegrityWarning
	for _, symbol := range sortedKeys(groups) {
		rows := groups[symbol]
		if len(rows) < 2 {
			continue
		}
		g := models.DuplicateGroup{Symbol: symbol}
		total := decimal.Zero
		for _, r := range rows {
			g.IDs = append(g.IDs, r.ID)
			total = total.Add(decimal.NewFromFloat(r.Shares))
		}
		g.TotalShares, _ = total.Float64()
		warning = append(warning, g)
	}
	return warning
}

// GroupBySymbol buckets rows by symbol, each group sorted oldest first (ID breaks ties).
func GroupBySymbol(positions []models.Investment) map[string][]models.Investment {
	groups := make(map[string][]models.Investment)
	for _, p := range positions {
		groups[p.Symbol] = append(groups[p.Symbol], p)
	}
	for _, rows := range groups {
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
				return rows[i].CreatedAt.Before(rows[j].CreatedAt)
			}
			return rows[i].ID < rows[j].ID
		})
	}
	return groups
}

func sortedKeys(m map[string][]models.Investment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
