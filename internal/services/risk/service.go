package risk

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/roundup/internal/common"
	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
)

// Compile-time interface check
var _ interfaces.RiskService = (*Service)(nil)

// Service implements RiskService
type Service struct {
	storage       interfaces.StorageManager
	logger        *common.Logger
	questionnaire models.Questionnaire
	now           func() time.Time
}

// NewService creates a new risk service using the default questionnaire
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage:       storage,
		logger:        logger,
		questionnaire: DefaultQuestionnaire(),
		now:           time.Now,
	}
}

// Questionnaire returns the current question set.
func (s *Service) Questionnaire() models.Questionnaire {
	return s.questionnaire
}

// Submit scores a response set and stores it as a new assessment.
// Nothing is stored when scoring fails.
func (s *Service) Submit(ctx context.Context, responses map[string]int) (*models.RiskAssessment, error) {
	score, err := Score(s.questionnaire, responses)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]int, len(responses))
	for k, v := range responses {
		stored[k] = v
	}

	a := &models.RiskAssessment{
		ID:                   uuid.New().String(),
		UserID:               common.ResolveUserID(ctx),
		QuestionnaireVersion: s.questionnaire.Version,
		QuestionResponses:    stored,
		RiskScore:            score.Normalized,
		RiskCategory:         score.Category,
		CompletedAt:          s.now(),
	}
	if err := s.storage.RiskAssessmentStore().Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user", a.UserID).
		Str("assessment", a.ID).
		Float64("score", a.RiskScore).
		Str("category", string(a.RiskCategory)).
		Msg("Risk assessment completed")
	return a, nil
}

// Latest returns the user's most recent assessment.
func (s *Service) Latest(ctx context.Context) (*models.RiskAssessment, error) {
	return s.storage.RiskAssessmentStore().Latest(ctx, common.ResolveUserID(ctx))
}

// Recommendation derives the allocation recommendation from the latest assessment.
func (s *Service) Recommendation(ctx context.Context) (*models.Recommendation, error) {
	latest, err := s.Latest(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("risk_assessment", "complete the risk questionnaire first")
		}
		return nil, err
	}
	rec, err := Recommend(latest.RiskCategory)
	if err != nil {
		return nil, err
	}
	rec.AssessmentID = latest.ID
	rec.AssessmentScore = latest.RiskScore
	return rec, nil
}
