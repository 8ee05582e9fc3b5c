package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// TransactionStore implements interfaces.TransactionStore using SurrealDB.
type TransactionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.TransactionStore = (*TransactionStore)(nil)

// transactionRecord is the SurrealDB record shape for transactions.
type transactionRecord struct {
	Key               string     `json:"key"`
	UserID            string     `json:"user_id"`
	Amount            float64    `json:"amount"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Date              time.Time  `json:"date"`
	RoundUpAmount     float64    `json:"round_up_amount"`
	IsRoundUpInvested bool       `json:"is_round_up_invested"`
	InvestedAt        *time.Time `json:"invested_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (r transactionRecord) model() models.Transaction {
	return models.Transaction{
		ID:                r.Key,
		UserID:            r.UserID,
		Amount:            r.Amount,
		Description:       r.Description,
		Category:          r.Category,
		Date:              r.Date,
		RoundUpAmount:     r.RoundUpAmount,
		IsRoundUpInvested: r.IsRoundUpInvested,
		InvestedAt:        r.InvestedAt,
		CreatedAt:         r.CreatedAt,
	}
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(db *surrealdb.DB, logger *common.Logger) *TransactionStore {
	return &TransactionStore{db: db, logger: logger}
}

func (s *TransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	record := transactionRecord{
		Key:               tx.ID,
		UserID:            tx.UserID,
		Amount:            tx.Amount,
		Description:       tx.Description,
		Category:          tx.Category,
		Date:              tx.Date,
		RoundUpAmount:     tx.RoundUpAmount,
		IsRoundUpInvested: tx.IsRoundUpInvested,
		InvestedAt:        tx.InvestedAt,
		CreatedAt:         tx.CreatedAt,
	}
	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableTransaction, tx.ID), "record": record}
	if _, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *TransactionStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	record, err := surrealdb.Select[transactionRecord](ctx, s.db, surrealmodels.NewRecordID(tableTransaction, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select transaction: %w", err)
	}
	if record == nil || record.Key == "" {
		return nil, fmt.Errorf("transaction '%s': %w", id, models.ErrNotFound)
	}
	tx := record.model()
	return &tx, nil
}

func (s *TransactionStore) list(ctx context.Context, sql string, vars map[string]any) ([]models.Transaction, error) {
	results, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	records := rows(results)
	txs := make([]models.Transaction, len(records))
	for i, r := range records {
		txs[i] = r.model()
	}
	return txs, nil
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.list(ctx, "SELECT * FROM roundup_transaction WHERE user_id = $user_id", map[string]any{"user_id": userID})
}

func (s *TransactionStore) ListPending(ctx context.Context, userID string) ([]models.Transaction, error) {
	sql := "SELECT * FROM roundup_transaction WHERE user_id = $user_id AND is_round_up_invested = false"
	return s.list(ctx, sql, map[string]any{"user_id": userID})
}

// MarkInvested uses a conditional UPDATE so the flag only ever flips once.
func (s *TransactionStore) MarkInvested(ctx context.Context, id string, at time.Time) (bool, error) {
	sql := "UPDATE $rid SET is_round_up_invested = true, invested_at = $at WHERE is_round_up_invested = false RETURN AFTER"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableTransaction, id), "at": at}
	results, err := surrealdb.Query[[]transactionRecord](ctx, s.db, sql, vars)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction '%s' invested: %w", id, err)
	}
	if len(rows(results)) > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
