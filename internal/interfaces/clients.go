package interfaces

import "context"

// PriceSource supplies a reference price per instrument. Quotes are not
// required to be live or correct.
type PriceSource interface {
	GetReferencePrice(ctx context.Context, symbol string) (float64, error)
}
