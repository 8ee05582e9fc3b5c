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

// RiskAssessmentStore implements interfaces.RiskAssessmentStore using SurrealDB.
type RiskAssessmentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.RiskAssessmentStore = (*RiskAssessmentStore)(nil)

type riskAssessmentRecord struct {
	Key                  string              `json:"key"`
	UserID               string              `json:"user_id"`
	QuestionnaireVersion string              `json:"questionnaire_version"`
	QuestionResponses    map[string]int      `json:"question_responses"`
	RiskScore            float64             `json:"risk_score"`
	RiskCategory         models.RiskCategory `json:"risk_category"`
	CompletedAt          time.Time           `json:"completed_at"`
}

func (r riskAssessmentRecord) model() models.RiskAssessment {
	return models.RiskAssessment{
		ID:                   r.Key,
		UserID:               r.UserID,
		QuestionnaireVersion: r.QuestionnaireVersion,
		QuestionResponses:    r.QuestionResponses,
		RiskScore:            r.RiskScore,
		RiskCategory:         r.RiskCategory,
		CompletedAt:          r.CompletedAt,
	}
}

// NewRiskAssessmentStore creates a new RiskAssessmentStore.
func NewRiskAssessmentStore(db *surrealdb.DB, logger *common.Logger) *RiskAssessmentStore {
	return &RiskAssessmentStore{db: db, logger: logger}
}

func (s *RiskAssessmentStore) Create(ctx context.Context, a *models.RiskAssessment) error {
	record := riskAssessmentRecord{
		Key:                  a.ID,
		UserID:               a.UserID,
		QuestionnaireVersion: a.QuestionnaireVersion,
		QuestionResponses:    a.QuestionResponses,
		RiskScore:            a.RiskScore,
		RiskCategory:         a.RiskCategory,
		CompletedAt:          a.CompletedAt,
	}
	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableRiskAssessment, a.ID), "record": record}
	if _, err := surrealdb.Query[[]riskAssessmentRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create risk assessment: %w", err)
	}
	return nil
}

func (s *RiskAssessmentStore) ListByUser(ctx context.Context, userID string) ([]models.RiskAssessment, error) {
	sql := "SELECT * FROM risk_assessment WHERE user_id = $user_id ORDER BY completed_at DESC"
	results, err := surrealdb.Query[[]riskAssessmentRecord](ctx, s.db, sql, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	records := rows(results)
	as := make([]models.RiskAssessment, len(records))
	for i, r := range records {
		as[i] = r.model()
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
