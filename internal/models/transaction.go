// Package models defines data structures for the round-up engine
package models

import "time"

// Transaction is a single spending record. RoundUpAmount is fixed at ingestion;
// IsRoundUpInvested flips from false to true at most once.
type Transaction struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Amount            float64    `json:"amount"` // signed, negative = expense
	Description       string     `json:"description"`
	Category          string     `json:"category,omitempty"`
	Date              time.Time  `json:"date"`
	RoundUpAmount     float64    `json:"round_up_amount"`
	IsRoundUpInvested bool       `json:"is_round_up_invested"`
	InvestedAt        *time.Time `json:"invested_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Pending reports whether the transaction contributes to the round-up pool.
func (t *Transaction) Pending() bool {
	return !t.IsRoundUpInvested && t.RoundUpAmount > 0
}

// NewTransaction is the ingestion payload.
type NewTransaction struct {
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
}

// RoundUpPool is the derived set of un-invested round-ups for a user.
// It is always recomputed from transactions, never stored.
type RoundUpPool struct {
	Total          float64       `json:"total"`
	Count          int           `json:"count"`
	TransactionIDs []string      `json:"transaction_ids"`
	Transactions   []Transaction `json:"-"`
}

// MonthlyRoundUps summarises one calendar month of activity.
type MonthlyRoundUps struct {
	Month            string  `json:"month"` // YYYY-MM
	TransactionCount int     `json:"transaction_count"`
	Spent            float64 `json:"spent"`
	RoundUps         float64 `json:"round_ups"`
	Invested         float64 `json:"invested"`
	Pending          float64 `json:"pending"`
}

// ImportResult reports the outcome of a statement import.
type ImportResult struct {
	Imported []Transaction `json:"imported"`
	Skipped  []string      `json:"skipped,omitempty"`
}
