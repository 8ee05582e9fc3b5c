// Package interfaces defines service and storage contracts
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/roundup/internal/models"
)

// StorageManager coordinates the typed record stores
type StorageManager interface {
	TransactionStore() TransactionStore
	PortfolioStore() PortfolioStore
	InvestmentStore() InvestmentStore
	RiskAssessmentStore() RiskAssessmentStore

	// Close closes all storage backends
	Close() error
}

// TransactionStore persists spending transactions. Transactions are never deleted.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	Get(ctx context.Context, id string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	// ListPending returns the user's transactions not yet invested.
	ListPending(ctx context.Context, userID string) ([]models.Transaction, error)
	// MarkInvested flips IsRoundUpInvested from false to true. Returns false
	// without error when the transaction was already invested.
	MarkInvested(ctx context.Context, id string, at time.Time) (bool, error)
}

// PortfolioStore persists portfolios
type PortfolioStore interface {
	Create(ctx context.Context, p *models.Portfolio) error
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]models.Portfolio, error)
	Update(ctx context.Context, p *models.Portfolio) error
}

// InvestmentStore persists position rows. It does not enforce symbol uniqueness;
// the ledger service is the only writer and merges under a portfolio lock.
type InvestmentStore interface {
	Create(ctx context.Context, inv *models.Investment) error
	Get(ctx context.Context, id string) (*models.Investment, error)
	ListByPortfolio(ctx context.Context, portfolioID string) ([]models.Investment, error)
	Update(ctx context.Context, inv *models.Investment) error
	Delete(ctx context.Context, id string) error
	// ReplaceGroup writes canonical and deletes deleteIDs in one transaction.
	// Either every change is applied or none is.
	ReplaceGroup(ctx context.Context, canonical *models.Investment, deleteIDs []string) error
}

// RiskAssessmentStore persists immutable assessments
type RiskAssessmentStore interface {
	Create(ctx context.Context, a *models.RiskAssessment) error
	ListByUser(ctx context.Context, userID string) ([]models.RiskAssessment, error)
	// Latest returns the most recently completed assessment or models.ErrNotFound.
	Latest(ctx context.Context, userID string) (*models.RiskAssessment, error)
}
