// Package roundup derives spare-change round-ups from spending transactions
package roundup

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/models"
)

// MaxAmount bounds a single transaction's magnitude.
const MaxAmount = 1e9

// RoundUp returns the spare change needed to reach the next whole unit:
// ceil(|amount|) - |amount|, rounded to cents. Whole amounts yield 0.
func RoundUp(amount float64) float64 {
	abs := decimal.NewFromFloat(amount).Abs()
	r, _ := abs.Ceil().Sub(abs).Round(common.CashPlaces).Float64()
	return r
}

// ValidateAmount rejects amounts the calculator cannot represent exactly.
func ValidateAmount(amount float64) error {
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		return models.NewValidationError("amount", "must be finite")
	case amount == 0:
		return models.NewValidationError("amount", "must not be zero")
	case math.Abs(amount) >= MaxAmount:
		return models.NewValidationError("amount", fmt.Sprintf("exceeds maximum (%.0f)", MaxAmount))
	case !common.HasAtMostPlaces(amount, common.CashPlaces):
		return models.NewValidationError("amount", "must have at most two decimal places")
	}
	return nil
}

// Sum adds round-up amounts exactly.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(common.CashPlaces).Float64()
	return f
}
