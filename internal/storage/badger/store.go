// Package badger provides BadgerHold-based record stores for the embedded backend.
package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// Store wraps a BadgerHold database connection and implements interfaces.StorageManager.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger

	transactions *TransactionStore
	portfolios   *PortfolioStore
	investments  *InvestmentStore
	assessments  *RiskAssessmentStore
}

var _ interfaces.StorageManager = (*Store)(nil)

// NewStore opens a BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("BadgerHold store opened")

	s := &Store{db: db, logger: logger}
	s.transactions = &TransactionStore{db: db, logger: logger}
	s.portfolios = &PortfolioStore{db: db, logger: logger}
	s.investments = &InvestmentStore{db: db, logger: logger}
	s.assessments = &RiskAssessmentStore{db: db, logger: logger}
	return s, nil
}

func (s *Store) TransactionStore() interfaces.TransactionStore {
	return s.transactions
}

func (s *Store) PortfolioStore() interfaces.PortfolioStore {
	return s.portfolios
}

func (s *Store) InvestmentStore() interfaces.InvestmentStore {
	return s.investments
}

func (s *Store) RiskAssessmentStore() interfaces.RiskAssessmentStore {
	return s.assessments
}

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// notFound maps badgerhold.ErrNotFound onto models.ErrNotFound.
func notFound(err error, kind, id string) error {
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("%s '%s': %w", kind, id, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s '%s': %w", kind, id, err)
}
