package common

import "github.com/shopspring/decimal"

// Decimal places used for cash amounts and share quantities.
const (
	CashPlaces  int32 = 2
	SharePlaces int32 = 6
)

// RoundTo rounds v half away from zero to the given number of decimal places.
// The value is routed through its shortest decimal representation, so 0.6499999999 style
// float artefacts from earlier arithmetic do not leak into the result.
func RoundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundCash rounds to cents.
func RoundCash(v float64) float64 {
	return RoundTo(v, CashPlaces)
}

// RoundShares rounds to six decimal places.
func RoundShares(v float64) float64 {
	return RoundTo(v, SharePlaces)
}

// HasAtMostPlaces reports whether v can be expressed with at most the given decimal places.
func HasAtMostPlaces(v float64, places int32) bool {
	d := decimal.NewFromFloat(v)
	return d.Equal(d.Round(places))
}
