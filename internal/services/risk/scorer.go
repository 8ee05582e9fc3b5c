package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/roundup/internal/models"
)

// Category thresholds on the normalized score.
const (
	ConservativeMax = 0.33
	ModerateMax     = 0.66
)

// Score maps a complete response set to a normalized score and category.
// Responses are summed in questionnaire order so the result does not depend on map iteration.
func Score(q models.Questionnaire, responses map[string]int) (models.RiskScore, error) {
	known := make(map[string]bool, len(q.Questions))
	var missing []string
	for _, question := range q.Questions {
		known[question.ID] = true
		if _, ok := responses[question.ID]; !ok {
			missing = append(missing, question.ID)
		}
	}

	var unknown []string
	for id := range responses {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return models.RiskScore{}, models.NewValidationError("question_responses", fmt.Sprintf("unknown question(s): %v", unknown))
	}
	if len(missing) > 0 {
		return models.RiskScore{}, &models.IncompleteAssessmentError{Missing: missing}
	}
	if len(q.Questions) == 0 {
		return models.RiskScore{}, models.NewValidationError("questionnaire", "has no questions")
	}

	sum := decimal.Zero
	for _, question := range q.Questions {
		v := responses[question.ID]
		if v < 1 || v > 5 {
			return models.RiskScore{}, models.NewValidationError(question.ID, fmt.Sprintf("answer %d must be between 1 and 5", v))
		}
		sum = sum.Add(decimal.NewFromInt(int64(v)))
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(q.Questions))))
	normalized := mean.Sub(decimal.NewFromInt(1)).Div(decimal.NewFromInt(4))

	raw, _ := mean.Float64()
	norm, _ := normalized.Float64()
	return models.RiskScore{
		Raw:        raw,
		Normalized: norm,
		Category:   Categorize(norm),
	}, nil
}

// Categorize maps a normalized score in [0,1] onto a risk category.
func Categorize(normalized float64) models.RiskCategory {
	switch {
	case normalized <= ConservativeMax:
		return models.RiskConservative
	case normalized <= ModerateMax:
		return models.RiskModerate
	default:
		return models.RiskAggressive
	}
}
