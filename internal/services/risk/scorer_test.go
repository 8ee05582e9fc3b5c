package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/roundup/internal/models"
)

func answers(values ...int) map[string]int {
	q := DefaultQuestionnaire()
	out := make(map[string]int, len(q.Questions))
	for i, question := range q.Questions {
		out[question.ID] = values[i%len(values)]
	}
	return out
}

func TestScore_Extremes(t *testing.T) {
	q := DefaultQuestionnaire()

	s, err := Score(q, answers(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Normalized)
	assert.Equal(t, models.RiskConservative, s.Category)

	s, err = Score(q, answers(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Raw)
	assert.Equal(t, 0.5, s.Normalized)
	assert.Equal(t, models.RiskModerate, s.Category)

	s, err = Score(q, answers(5))
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Normalized)
	assert.Equal(t, models.RiskAggressive, s.Category)
}

func TestScore_Bands(t *testing.T) {
	q := DefaultQuestionnaire()
	tests := []struct {
		name   string
		values []int
		want   models.RiskCategory
	}{
		// eight answers summing to 18: normalized 0.3125
		{"top of conservative", []int{3, 3, 2, 2, 2, 2, 2, 2}, models.RiskConservative},
		// sum 19: normalized 0.34375
		{"bottom of moderate", []int{3, 3, 3, 2, 2, 2, 2, 2}, models.RiskModerate},
		// sum 29: normalized 0.65625
		{"top of moderate", []int{4, 4, 4, 4, 4, 3, 3, 3}, models.RiskModerate},
		// sum 30: normalized 0.6875
		{"bottom of aggressive", []int{4, 4, 4, 4, 4, 4, 3, 3}, models.RiskAggressive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Score(q, answers(tt.values...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Category, "normalized %v", s.Normalized)
		})
	}
}

func TestCategorize_Thresholds(t *testing.T) {
	assert.Equal(t, models.RiskConservative, Categorize(0.33))
	assert.Equal(t, models.RiskModerate, Categorize(0.3301))
	assert.Equal(t, models.RiskModerate, Categorize(0.66))
	assert.Equal(t, models.RiskAggressive, Categorize(0.6601))
}

func TestScore_Deterministic(t *testing.T) {
	q := DefaultQuestionnaire()
	r := answers(5, 1, 4, 2, 3)
	first, err := Score(q, r)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Score(q, r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScore_Incomplete(t *testing.T) {
	r := answers(3)
	delete(r, "emergency_fund")
	delete(r, "risk_comfort")

	_, err := Score(DefaultQuestionnaire(), r)
	var incomplete *models.IncompleteAssessmentError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"risk_comfort", "emergency_fund"}, incomplete.Missing)
	assert.True(t, models.IsValidation(err))
}

func TestScore_RejectsBadAnswers(t *testing.T) {
	r := answers(3)
	r["time_horizon"] = 6
	_, err := Score(DefaultQuestionnaire(), r)
	assert.True(t, models.IsValidation(err))

	r = answers(3)
	r["time_horizon"] = 0
	_, err = Score(DefaultQuestionnaire(), r)
	assert.True(t, models.IsValidation(err))

	r = answers(3)
	r["favourite_colour"] = 2
	_, err = Score(DefaultQuestionnaire(), r)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "favourite_colour")
}

func TestDefaultQuestionnaire_Shape(t *testing.T) {
	q := DefaultQuestionnaire()
	assert.Equal(t, QuestionnaireVersion, q.Version)
	require.Len(t, q.Questions, 8)

	seen := map[string]bool{}
	categories := map[string]int{}
	for _, question := range q.Questions {
		assert.False(t, seen[question.ID], "duplicate id %s", question.ID)
		seen[question.ID] = true
		categories[question.Category]++
		require.Len(t, question.Options, 5)
		for i, o := range question.Options {
			assert.Equal(t, i+1, o.Value)
		}
	}
	assert.Len(t, categories, 4)
}
