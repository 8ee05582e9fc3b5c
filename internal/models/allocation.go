package models

import (
	"fmt"
	"math"
)

// Bucket is one of the fixed allocation categories.
type Bucket string

const (
	BucketStocks Bucket = "stocks"
	BucketBonds  Bucket = "bonds"
	BucketETFs   Bucket = "etfs"
)

// Buckets lists every bucket in canonical order.
var Buckets = []Bucket{BucketStocks, BucketBonds, BucketETFs}

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, nil
		}
	}
	return "", NewValidationError("bucket", fmt.Sprintf("unknown bucket %q (expected stocks, bonds or etfs)", s))
}

// AllocationTolerance is the allowed deviation of a committed allocation total from 100.
const AllocationTolerance = 0.01

// Allocation holds percentage weights per bucket.
type Allocation struct {
	Stocks float64 `json:"stocks"`
	Bonds  float64 `json:"bonds"`
	ETFs   float64 `json:"etfs"`
}

// Get returns the weight of a bucket.
func (a Allocation) Get(b Bucket) float64 {
	switch b {
	case BucketStocks:
		return a.Stocks
	case BucketBonds:
		return a.Bonds
	case BucketETFs:
		return a.ETFs
	}
	return 0
}

// With returns a copy with the bucket set to v.
func (a Allocation) With(b Bucket, v float64) Allocation {
	switch b {
	case BucketStocks:
		a.Stocks = v
	case BucketBonds:
		a.Bonds = v
	case BucketETFs:
		a.ETFs = v
	}
	return a
}

// Total sums every bucket.
func (a Allocation) Total() float64 {
	return a.Stocks + a.Bonds + a.ETFs
}

// Validate checks a committed allocation: every weight within [0,100] and a total of 100.
func (a Allocation) Validate() error {
	for _, b := range Buckets {
		v := a.Get(b)
		if math.IsNaN(v) || v < 0 || v > 100 {
			return NewValidationError(string(b), fmt.Sprintf("weight %.2f must be between 0 and 100", v))
		}
	}
	if math.Abs(a.Total()-100) > AllocationTolerance {
		return NewValidationError("allocation", fmt.Sprintf("weights total %.2f, expected 100", a.Total()))
	}
	return nil
}

// DefaultAllocation is used for portfolios created before any risk assessment.
func DefaultAllocation() Allocation {
	return Allocation{Stocks: 70, Bonds: 20, ETFs: 10}
}
