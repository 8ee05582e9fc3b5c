// Package allocation manages percentage allocation strategies across the fixed buckets
package allocation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/models"
)

var presets = map[models.RiskCategory]models.Allocation{
	models.RiskConservative: {Stocks: 35, Bonds: 65, ETFs: 0},
	models.RiskModerate:     {Stocks: 45, Bonds: 35, ETFs: 20},
	models.RiskAggressive:   {Stocks: 85, Bonds: 5, ETFs: 10},
}

// DefaultFor returns the preset allocation for a risk category.
func DefaultFor(category models.RiskCategory) (models.Allocation, error) {
	a, ok := presets[category]
	if !ok {
		return models.Allocation{}, models.NewValidationError("risk_category", fmt.Sprintf("no preset for %q", category))
	}
	return a, nil
}

// Validate checks a committed allocation.
func Validate(a models.Allocation) error {
	return a.Validate()
}

// AdjustResult is the outcome of AdjustBucket. Balanced is false when the
// other buckets had nothing to redistribute and the total is not 100.
type AdjustResult struct {
	Allocation models.Allocation `json:"allocation"`
	Total      float64           `json:"total"`
	Balanced   bool              `json:"balanced"`
}

// AdjustBucket sets one bucket and moves the difference across the other
// buckets in proportion to their current weights, so the total returns to 100.
// Weights are kept to two decimal places and never go negative. When every
// other bucket is zero they stay zero and the unbalanced total is reported.
func AdjustBucket(current models.Allocation, bucket models.Bucket, newValue float64) (AdjustResult, error) {
	if _, err := models.ParseBucket(string(bucket)); err != nil {
		return AdjustResult{}, err
	}
	if math.IsNaN(newValue) || newValue < 0 || newValue > 100 {
		return AdjustResult{}, models.NewValidationError(string(bucket), fmt.Sprintf("weight %.2f must be between 0 and 100", newValue))
	}
	newValue = common.RoundCash(newValue)

	var others []models.Bucket
	for _, b := range models.Buckets {
		if b != bucket {
			others = append(others, b)
		}
	}

	otherTotal := 0.0
	for _, b := range others {
		otherTotal += math.Max(0, current.Get(b))
	}

	result := current.With(bucket, newValue)
	if otherTotal <= 0 {
		for _, b := range others {
			result = result.With(b, 0)
		}
		return finish(result), nil
	}

	diff := newValue - current.Get(bucket)
	for _, b := range others {
		o := math.Max(0, current.Get(b))
		result = result.With(b, math.Max(0, o-diff*o/otherTotal))
	}

	result = spreadRemainder(result, others)
	result = roundToCents(result, others)
	return finish(result), nil
}

// spreadRemainder pushes 100-total evenly onto the other buckets. Buckets that
// would go negative are clamped and the leftover is re-spread over the rest.
func spreadRemainder(a models.Allocation, others []models.Bucket) models.Allocation {
	for pass := 0; pass <= len(others); pass++ {
		remainder := 100 - a.Total()
		if math.Abs(remainder) < 1e-9 {
			break
		}
		var eligible []models.Bucket
		for _, b := range others {
			if remainder > 0 || a.Get(b) > 0 {
				eligible = append(eligible, b)
			}
		}
		if len(eligible) == 0 {
			break
		}
		share := remainder / float64(len(eligible))
		for _, b := range eligible {
			a = a.With(b, math.Max(0, a.Get(b)+share))
		}
	}
	return a
}

// roundToCents rounds every weight to two places and spreads the rounding
// residual one cent at a time across the other buckets, skipping any that
// would go negative, so the total stays exact.
func roundToCents(a models.Allocation, others []models.Bucket) models.Allocation {
	total := decimal.Zero
	for _, b := range models.Buckets {
		v := common.RoundCash(a.Get(b))
		a = a.With(b, v)
		total = total.Add(decimal.NewFromFloat(v))
	}

	cent := decimal.New(1, -common.CashPlaces)
	cents := decimal.NewFromInt(100).Sub(total).Div(cent).IntPart()
	step := cent
	if cents < 0 {
		step = cent.Neg()
		cents = -cents
	}

	for i, stalled := 0, 0; cents > 0 && stalled < len(others); i++ {
		b := others[i%len(others)]
		next := decimal.NewFromFloat(a.Get(b)).Add(step)
		if next.IsNegative() {
			stalled++
			continue
		}
		v, _ := next.Float64()
		a = a.With(b, v)
		cents--
		stalled = 0
	}
	return a
}

func finish(a models.Allocation) AdjustResult {
	total := common.RoundCash(a.Total())
	return AdjustResult{
		Allocation: a,
		Total:      total,
		Balanced:   math.Abs(total-100) <= models.AllocationTolerance,
	}
}
