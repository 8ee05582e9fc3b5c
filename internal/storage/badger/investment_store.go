package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// InvestmentStore persists position rows in BadgerHold.
type InvestmentStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.InvestmentStore = (*InvestmentStore)(nil)

func (s *InvestmentStore) Create(_ context.Context, inv *models.Investment) error {
	if err := s.db.Insert(inv.ID, inv); err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (s *InvestmentStore) Get(_ context.Context, id string) (*models.Investment, error) {
	var inv models.Investment
	if err := s.db.Get(id, &inv); err != nil {
		return nil, notFound(err, "investment", id)
	}
	return &inv, nil
}

func (s *InvestmentStore) ListByPortfolio(_ context.Context, portfolioID string) ([]models.Investment, error) {
	var invs []models.Investment
	if err := s.db.Find(&invs, badgerhold.Where("PortfolioID").Eq(portfolioID)); err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	return invs, nil
}

func (s *InvestmentStore) Update(_ context.Context, inv *models.Investment) error {
	if err := s.db.Update(inv.ID, inv); err != nil {
		return notFound(err, "investment", inv.ID)
	}
	return nil
}

func (s *InvestmentStore) Delete(_ context.Context, id string) error {
	err := s.db.Delete(id, models.Investment{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete investment '%s': %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Investment deleted")
	return nil
}

func (s *InvestmentStore) ReplaceGroup(_ context.Context, canonical *models.Investment, deleteIDs []string) error {
	err := s.db.Badger().Update(func(tx *badgerdb.Txn) error {
		for _, id := range deleteIDs {
			if err := s.db.TxDelete(tx, id, models.Investment{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("failed to delete investment '%s': %w", id, err)
			}
		}
		if err := s.db.TxUpdate(tx, canonical.ID, canonical); err != nil {
			return notFound(err, "investment", canonical.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("id", canonical.ID).Int("deleted", len(deleteIDs)).Msg("Investment group replaced")
	return nil
}
