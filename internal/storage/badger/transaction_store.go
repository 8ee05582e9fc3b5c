package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TransactionStore persists transactions in BadgerHold.
type TransactionStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.TransactionStore = (*TransactionStore)(nil)

func (s *TransactionStore) Create(_ context.Context, tx *models.Transaction) error {
	if err := s.db.Insert(tx.ID, tx); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *TransactionStore) Get(_ context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Get(id, &tx); err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &tx, nil
}

func (s *TransactionStore) ListByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.Find(&txs, badgerhold.Where("UserID").Eq(userID)); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionStore) ListPending(ctx context.Context, userID string) ([]models.Transaction, error) {
	all, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending := make([]models.Transaction, 0, len(all))
	for _, tx := range all {
		if !tx.IsRoundUpInvested {
			pending = append(pending, tx)
		}
	}
	return pending, nil
}

// MarkInvested performs the read-check-write inside a single badger transaction.
func (s *TransactionStore) MarkInvested(_ context.Context, id string, at time.Time) (bool, error) {
	found := false
	flipped := false
	err := s.db.UpdateMatching(&models.Transaction{}, badgerhold.Where("ID").Eq(id), func(record interface{}) error {
		tx, ok := record.(*models.Transaction)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		found = true
		if tx.IsRoundUpInvested {
			return nil
		}
		tx.IsRoundUpInvested = true
		investedAt := at
		tx.InvestedAt = &investedAt
		flipped = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction '%s' invested: %w", id, err)
	}
	if !found {
		return false, fmt.Errorf("transaction '%s': %w", id, models.ErrNotFound)
	}
	return flipped, nil
}
