package roundup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
)

// Compile-time interface check
var _ interfaces.TransactionService = (*Service)(nil)

// Service implements TransactionService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new transaction service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

func validateNewTransaction(in models.NewTransaction, now time.Time) error {
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return models.NewValidationError("description", "is required")
	}
	if len(desc) > 500 {
		return models.NewValidationError("description", "exceeds 500 characters")
	}
	if in.Date.After(now.Add(24 * time.Hour)) {
		return models.NewValidationError("date", "cannot be in the future")
	}
	return nil
}

// Ingest records a transaction and fixes its round-up. The round-up is never recomputed.
func (s *Service) Ingest(ctx context.Context, in models.NewTransaction) (*models.Transaction, error) {
	now := s.now()
	if err := validateNewTransaction(in, now); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = now
	}

	tx := &models.Transaction{
		ID:            uuid.New().String(),
		UserID:        common.ResolveUserID(ctx),
		Amount:        in.Amount,
		Description:   strings.TrimSpace(in.Description),
		Category:      strings.TrimSpace(in.Category),
		Date:          date,
		RoundUpAmount: RoundUp(in.Amount),
		CreatedAt:     now,
	}

	if err := s.storage.TransactionStore().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.Debug().
		Str("user", tx.UserID).
		Str("id", tx.ID).
		Float64("amount", tx.Amount).
		Float64("round_up", tx.RoundUpAmount).
		Msg("Transaction ingested")

	return tx, nil
}

// List returns the user's transactions, newest first.
func (s *Service) List(ctx context.Context, pendingOnly bool) ([]models.Transaction, error) {
	userID := common.ResolveUserID(ctx)
	store := s.storage.TransactionStore()

	var (
		txs []models.Transaction
		err error
	)
	if pendingOnly {
		txs, err = store.ListPending(ctx, userID)
	} else {
		txs, err = store.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if pendingOnly {
		filtered := txs[:0]
		for _, tx := range txs {
			if tx.Pending() {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}

	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

// Pending recomputes the round-up pool from the transactions themselves.
func (s *Service) Pending(ctx context.Context) (*models.RoundUpPool, error) {
	txs, err := s.storage.TransactionStore().ListPending(ctx, common.ResolveUserID(ctx))
	if err != nil {
		return nil, err
	}

	pool := &models.RoundUpPool{TransactionIDs: []string{}}
	amounts := make([]float64, 0, len(txs))
	for _, tx := range txs {
		if !tx.Pending() {
			continue
		}
		pool.Transactions = append(pool.Transactions, tx)
		amounts = append(amounts, tx.RoundUpAmount)
	}

	sort.SliceStable(pool.Transactions, func(i, j int) bool {
		return pool.Transactions[i].Date.Before(pool.Transactions[j].Date)
	})
	for _, tx := range pool.Transactions {
		pool.TransactionIDs = append(pool.TransactionIDs, tx.ID)
	}
	pool.Count = len(pool.Transactions)
	pool.Total = Sum(amounts...)
	return pool, nil
}

// MarkInvested flips the invested flag on the user's transactions.
// Returns how many transactions actually changed state.
func (s *Service) MarkInvested(ctx context.Context, ids []string) (int, error) {
	userID := common.ResolveUserID(ctx)
	store := s.storage.TransactionStore()
	at := s.now()

	flippedCount := 0
	for _, id := range ids {
		tx, err := store.Get(ctx, id)
		if err != nil {
			return flippedCount, err
		}
		if tx.UserID != userID {
			return flippedCount, fmt.Errorf("transaction '%s': %w", id, models.ErrNotFound)
		}
		flipped, err := store.MarkInvested(ctx, id, at)
		if err != nil {
			return flippedCount, err
		}
		if flipped {
			flippedCount++
		}
	}
	return flippedCount, nil
}

// MonthlyStats groups the user's activity by calendar month, oldest first.
func (s *Service) MonthlyStats(ctx context.Context) ([]models.MonthlyRoundUps, error) {
	txs, err := s.storage.TransactionStore().ListByUser(ctx, common.ResolveUserID(ctx))
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*models.MonthlyRoundUps)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &models.MonthlyRoundUps{Month: key}
			byMonth[key] = m
		}
		m.TransactionCount++
		if tx.Amount < 0 {
			m.Spent = Sum(m.Spent, -tx.Amount)
		}
		m.RoundUps = Sum(m.RoundUps, tx.RoundUpAmount)
		if tx.IsRoundUpInvested {
			m.Invested = Sum(m.Invested, tx.RoundUpAmount)
		} else {
			m.Pending = Sum(m.Pending, tx.RoundUpAmount)
		}
	}

	stats := make([]models.MonthlyRoundUps, 0, len(byMonth))
	for _, m := range byMonth {
		stats = append(stats, *m)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month < stats[j].Month })
	return stats, nil
}

// ImportStatement parses a PDF or plain-text statement and ingests each recognised line.
func (s *Service) ImportStatement(ctx context.Context, data []byte, contentType string) (*models.ImportResult, error) {
	lines, err := ExtractStatementLines(data, contentType)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{Imported: []models.Transaction{}}
	for _, line := range lines {
		in, perr := ParseStatementLine(line)
		if perr != nil {
			result.Skipped = append(result.Skipped, line)
			continue
		}
		tx, ierr := s.Ingest(ctx, in)
		if ierr != nil {
			if models.IsValidation(ierr) {
				result.Skipped = append(result.Skipped, line)
				continue
			}
			return result, ierr
		}
		result.Imported = append(result.Imported, *tx)
	}

	s.logger.Info().
		Int("imported", len(result.Imported)).
		Int("skipped", len(result.Skipped)).
		Msg("Statement imported")

	if len(result.Imported) == 0 && len(lines) > 0 {
		return result, models.NewValidationError("statement", "no transaction lines recognised")
	}
	return result, nil
}
