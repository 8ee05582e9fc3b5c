package badger

import (
	"context"
	"fmt"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RiskAssessmentStore persists risk assessments in BadgerHold.
type RiskAssessmentStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.RiskAssessmentStore = (*RiskAssessmentStore)(nil)

func (s *RiskAssessmentStore) Create(_ context.Context, a *models.RiskAssessment) error {
	if err := s.db.Insert(a.ID, a); err != nil {
		return fmt.Errorf("failed to create risk assessment: %w", err)
	}
	return nil
}

func (s *RiskAssessmentStore) ListByUser(_ context.Context, userID string) ([]models.RiskAssessment, error) {
	var as []models.RiskAssessment
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CompletedAt").Reverse()
	if err := s.db.Find(&as, query); err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	return as, nil
}

func (s *RiskAssessmentStore) Latest(ctx context.Context, userID string) (*models.RiskAssessment, error) {
	as, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(as) == 0 {
		return nil, fmt.Errorf("risk assessment for '%s': %w", userID, models.ErrNotFound)
	}
	return &as[0], nil
}
