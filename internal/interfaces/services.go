package interfaces

import (
	"context"

	"github.com/bobmcallan/roundup/internal/models"
)

// TransactionService ingests spending and derives the round-up pool
type TransactionService interface {
	Ingest(ctx context.Context, in models.NewTransaction) (*models.Transaction, error)
	List(ctx context.Context, pendingOnly bool) ([]models.Transaction, error)
	Pending(ctx context.Context) (*models.RoundUpPool, error)
	MarkInvested(ctx context.Context, ids []string) (int, error)
	MonthlyStats(ctx context.Context) ([]models.MonthlyRoundUps, error)
	ImportStatement(ctx context.Context, data []byte, contentType string) (*models.ImportResult, error)
}

// RiskService scores questionnaires and keeps the assessment history
type RiskService interface {
	Questionnaire() models.Questionnaire
	Submit(ctx context.Context, responses map[string]int) (*models.RiskAssessment, error)
	Latest(ctx context.Context) (*models.RiskAssessment, error)
	Recommendation(ctx context.Context) (*models.Recommendation, error)
}

// AllocationService edits a portfolio's allocation strategy
type AllocationService interface {
	Get(ctx context.Context, portfolioID string) (models.Allocation, error)
	Set(ctx context.Context, portfolioID string, a models.Allocation) (*models.Portfolio, error)
	Adjust(ctx context.Context, portfolioID string, bucket models.Bucket, value float64) (*AdjustOutcome, error)
	ApplyRecommended(ctx context.Context, portfolioID string) (*models.Portfolio, error)
	RenderChart(ctx context.Context, portfolioID string) ([]byte, error)
}

// AdjustOutcome reports a bucket adjustment. The allocation is only saved when Balanced.
type AdjustOutcome struct {
	Allocation models.Allocation `json:"allocation"`
	Total      float64           `json:"total"`
	Balanced   bool              `json:"balanced"`
	Saved      bool              `json:"saved"`
}

// LedgerService is the single writer of position rows
type LedgerService interface {
	AddLot(ctx context.Context, portfolioID string, lot models.Lot) (*models.Investment, error)
	Consolidate(ctx context.Context, portfolioID string) (*models.ConsolidationReport, error)
	Duplicates(ctx context.Context, portfolioID string) (models.IntegrityWarning, error)
	Positions(ctx context.Context, portfolioID string) ([]models.Investment, error)
	Reprice(ctx context.Context, portfolioID string, prices map[string]float64) ([]models.Investment, error)
}

// ExecutorService converts cash into lots across allocation buckets
type ExecutorService interface {
	Execute(ctx context.Context, req ExecuteRequest) (*models.ExecutionResult, error)
	InvestPending(ctx context.Context, portfolioID string) (*models.ExecutionResult, error)
	RefreshPrices(ctx context.Context, portfolioID string) ([]models.Investment, error)
}

// ExecuteRequest describes an investment run.
type ExecuteRequest struct {
	PortfolioID    string   `json:"portfolio_id"`
	Amount         float64  `json:"amount"`
	TransactionIDs []string `json:"transaction_ids,omitempty"`
}

// PortfolioService manages portfolios and their valuation
type PortfolioService interface {
	Create(ctx context.Context, in models.NewPortfolio) (*models.Portfolio, error)
	List(ctx context.Context) ([]models.Portfolio, error)
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	Active(ctx context.Context) (*models.Portfolio, error)
	GetValuation(ctx context.Context, id string) (*models.Valuation, error)
}
