package risk

import (
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/services/allocation"
)

type profile struct {
	expectedReturn float64
	volatility     float64
	explanation    string
}

// Annual percentages.
var profiles = map[models.RiskCategory]profile{
	models.RiskConservative: {5, 8, "Capital preservation first: mostly bonds, lower volatility and more predictable returns."},
	models.RiskModerate:     {8, 12, "Balanced growth and stability: moderate volatility with room to grow."},
	models.RiskAggressive:   {12, 18, "Long-term growth: mostly stocks, higher volatility for greater return potential."},
}

// Recommend builds the recommendation for a category. It is a pure lookup.
func Recommend(category models.RiskCategory) (*models.Recommendation, error) {
	alloc, err := allocation.DefaultFor(category)
	if err != nil {
		return nil, err
	}
	p := profiles[category]
	return &models.Recommendation{
		RiskCategory:   category,
		Allocation:     alloc,
		ExpectedReturn: p.expectedReturn,
		Volatility:     p.volatility,
		Explanation:    p.explanation,
	}, nil
}
