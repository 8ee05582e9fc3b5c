// Package risk scores the risk questionnaire and recommends allocations
package risk

import "github.com/bobmcallan/roundup/internal/models"

// QuestionnaireVersion identifies the current question set.
const QuestionnaireVersion = "v1"

func options(labels ...string) []models.QuestionOption {
	opts := make([]models.QuestionOption, len(labels))
	for i, l := range labels {
		opts[i] = models.QuestionOption{Value: i + 1, Label: l}
	}
	return opts
}

// DefaultQuestionnaire returns the v1 question set. Option values run 1 (most
// cautious) to 5 (most risk tolerant).
func DefaultQuestionnaire() models.Questionnaire {
	return models.Questionnaire{
		Version: QuestionnaireVersion,
		Questions: []models.Question{
			{
				ID:       "risk_comfort",
				Category: "risk_tolerance",
				Prompt:   "How would you react if your investments dropped 20% in a month?",
				Options: options(
					"Sell everything immediately",
					"Sell some investments",
					"Hold and wait",
					"Buy a little more",
					"Buy significantly more",
				),
			},
			{
				ID:       "portfolio_volatility",
				Category: "risk_tolerance",
				Prompt:   "Which portfolio swing would you be comfortable with in a typical year?",
				Options: options(
					"Less than 5%",
					"5% to 10%",
					"10% to 20%",
					"20% to 30%",
					"More than 30%",
				),
			},
			{
				ID:       "investment_experience",
				Category: "investment_experience",
				Prompt:   "How long have you been investing?",
				Options: options(
					"Never invested",
					"Less than 1 year",
					"1 to 3 years",
					"3 to 10 years",
					"More than 10 years",
				),
			},
			{
				ID:       "investment_knowledge",
				Category: "investment_experience",
				Prompt:   "How would you rate your investment knowledge?",
				Options: options(
					"None",
					"Basic",
					"Moderate",
					"Good",
					"Expert",
				),
			},
			{
				ID:       "time_horizon",
				Category: "time_horizon",
				Prompt:   "When do you expect to need this money?",
				Options: options(
					"Within 1 year",
					"In 1 to 3 years",
					"In 3 to 5 years",
					"In 5 to 10 years",
					"More than 10 years",
				),
			},
			{
				ID:       "investment_goals",
				Category: "time_horizon",
				Prompt:   "What is your primary investment goal?",
				Options: options(
					"Preserve capital",
					"Generate income",
					"Balanced growth and income",
					"Long-term growth",
					"Maximum growth",
				),
			},
			{
				ID:       "income_stability",
				Category: "financial_stability",
				Prompt:   "How stable is your income?",
				Options: options(
					"Very unstable",
					"Somewhat unstable",
					"Moderately stable",
					"Stable",
					"Very stable",
				),
			},
			{
				ID:       "emergency_fund",
				Category: "financial_stability",
				Prompt:   "How many months of expenses do you hold in emergency savings?",
				Options: options(
					"None",
					"Less than 1 month",
					"1 to 3 months",
					"3 to 6 months",
					"More than 6 months",
				),
			},
		},
	}
}
