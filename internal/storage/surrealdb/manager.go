// Package surrealdb provides SurrealDB-backed record stores.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Table names.
const (
	tableTransaction    = "roundup_transaction"
	tablePortfolio      = "portfolio"
	tableInvestment     = "investment"
	tableRiskAssessment = "risk_assessment"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	transactions *TransactionStore
	portfolios   *PortfolioStore
	investments  *InvestmentStore
	assessments  *RiskAssessmentStore
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager connects to SurrealDB, selects the namespace and database, and defines tables.
func NewManager(logger *common.Logger, config common.SurrealDBConfig) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Username,
		"pass": config.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Namespace, config.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManager(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("address", config.Address).
		Str("namespace", config.Namespace).
		Str("database", config.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// newManager defines tables on an already connected database.
func newManager(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// SurrealDB v3 errors on querying non-existent tables
	for _, table := range []string{tableTransaction, tablePortfolio, tableInvestment, tableRiskAssessment} {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	return &Manager{
		db:           db,
		logger:       logger,
		transactions: NewTransactionStore(db, logger),
		portfolios:   NewPortfolioStore(db, logger),
		investments:  NewInvestmentStore(db, logger),
		assessments:  NewRiskAssessmentStore(db, logger),
	}, nil
}

func (m *Manager) TransactionStore() interfaces.TransactionStore {
	return m.transactions
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolios
}

func (m *Manager) InvestmentStore() interfaces.InvestmentStore {
	return m.investments
}

func (m *Manager) RiskAssessmentStore() interfaces.RiskAssessmentStore {
	return m.assessments
}

// Close closes the SurrealDB connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close(context.Background())
	}
	return nil
}

// isNotFoundError reports driver errors that mean the record is absent.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// rows flattens the first statement result of a query.
func rows[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return nil
	}
	return (*results)[0].Result
}
