package models

import "time"

// DefaultPortfolioName is used when a portfolio is created on first access.
const DefaultPortfolioName = "Main Portfolio"

// Portfolio is a user's investment container.
type Portfolio struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	Name               string          `json:"name"`
	CashBalance        float64         `json:"cash_balance"`
	AllocationStrategy Allocation      `json:"allocation_strategy"`
	IsActive           bool            `json:"is_active"`
	RoundUpsInvested   float64         `json:"round_ups_invested"` // cash-accounting counter, not a valuation input
	Carry              *ExecutionCarry `json:"carry,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ExecutionCarry is bucket cash already invested for transactions that are
// still pending after a partial run. A later run over the same transactions
// buys only what is missing.
type ExecutionCarry struct {
	TransactionIDs []string           `json:"transaction_ids"`
	Applied        map[Bucket]float64 `json:"applied"`
}

// NewPortfolio is the creation payload.
type NewPortfolio struct {
	Name        string      `json:"name"`
	CashBalance float64     `json:"cash_balance"`
	Allocation  *Allocation `json:"allocation,omitempty"`
	Active      bool        `json:"active"`
}

// Investment is a position row. At most one live row per (PortfolioID, Symbol)
// is expected; duplicates are repaired by consolidation.
type Investment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	PortfolioID     string    `json:"portfolio_id"`
	Symbol          string    `json:"symbol"`
	Shares          float64   `json:"shares"`
	AvgCostPerShare float64   `json:"avg_cost_per_share"`
	CurrentPrice    float64   `json:"current_price"`
	TotalValue      float64   `json:"total_value"` // cached Shares * CurrentPrice
	InvestmentType  string    `json:"investment_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CostBasis is shares times average cost.
func (i *Investment) CostBasis() float64 {
	return i.Shares * i.AvgCostPerShare
}

// MarketValue prefers the cached total value, then shares at current price, then cost.
func (i *Investment) MarketValue() float64 {
	if i.TotalValue != 0 {
		return i.TotalValue
	}
	if i.CurrentPrice > 0 {
		return i.Shares * i.CurrentPrice
	}
	return i.Shares * i.AvgCostPerShare
}

// Lot is a purchase to merge into the ledger.
type Lot struct {
	Symbol         string  `json:"symbol"`
	Shares         float64 `json:"shares"`
	Price          float64 `json:"price"`
	CurrentPrice   float64 `json:"current_price,omitempty"`
	InvestmentType string  `json:"investment_type,omitempty"`
}

// PositionValue is one row of a valuation.
type PositionValue struct {
	Symbol          string  `json:"symbol"`
	InvestmentType  string  `json:"investment_type"`
	Shares          float64 `json:"shares"`
	AvgCostPerShare float64 `json:"avg_cost_per_share"`
	CurrentPrice    float64 `json:"current_price"`
	CostBasis       float64 `json:"cost_basis"`
	CurrentValue    float64 `json:"current_value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPct     float64 `json:"gain_loss_pct"`
	Weight          float64 `json:"weight"` // percent of current value
}

// Valuation is derived fresh from positions on every request.
type Valuation struct {
	PortfolioID      string             `json:"portfolio_id"`
	Name             string             `json:"name"`
	CostBasis        float64            `json:"cost_basis"`
	CurrentValue     float64            `json:"current_value"`
	GainLoss         float64            `json:"gain_loss"`
	GainLossPct      float64            `json:"gain_loss_pct"`
	CashBalance      float64            `json:"cash_balance"`
	DisplayTotal     float64            `json:"display_total"`
	RoundUpsInvested float64            `json:"round_ups_invested"`
	ByType           map[string]float64 `json:"by_type"`
	Positions        []PositionValue    `json:"positions"`
	Warnings         IntegrityWarning   `json:"warnings,omitempty"`
	ComputedAt       time.Time          `json:"computed_at"`
}

// ConsolidationReport summarises a consolidation run.
type ConsolidationReport struct {
	GroupsMerged int      `json:"groups_merged"`
	RowsDeleted  int      `json:"rows_deleted"`
	Symbols      []string `json:"symbols,omitempty"`
}

// BucketExecution records the lot placed for one bucket.
type BucketExecution struct {
	Bucket  Bucket  `json:"bucket"`
	Symbol  string  `json:"symbol"`
	Cash    float64 `json:"cash"`
	Carried float64 `json:"carried,omitempty"` // invested by an earlier partial run
	Price   float64 `json:"price"`
	Shares  float64 `json:"shares"`
	Error   string  `json:"error,omitempty"`
}

// ExecutionResult is returned by an investment run.
type ExecutionResult struct {
	PortfolioID    string            `json:"portfolio_id"`
	Amount         float64           `json:"amount"`
	AppliedCash    float64           `json:"applied_cash"`
	CarriedCash    float64           `json:"carried_cash,omitempty"`
	Buckets        []BucketExecution `json:"buckets"`
	TransactionIDs []string          `json:"transaction_ids,omitempty"`
	MarkedInvested int               `json:"marked_invested"`
	ExecutedAt     time.Time         `json:"executed_at"`
}
