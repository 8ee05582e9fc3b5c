package models

import "time"

// RiskCategory is the outcome band of a risk assessment.
type RiskCategory string

const (
	RiskConservative RiskCategory = "conservative"
	RiskModerate     RiskCategory = "moderate"
	RiskAggressive   RiskCategory = "aggressive"
)

// ParseRiskCategory validates a category name.
func ParseRiskCategory(s string) (RiskCategory, error) {
	switch RiskCategory(s) {
	case RiskConservative, RiskModerate, RiskAggressive:
		return RiskCategory(s), nil
	}
	return "", NewValidationError("risk_category", "unknown risk category "+s)
}

// QuestionOption is one answer to a questionnaire item.
type QuestionOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Question is a single questionnaire item.
type Question struct {
	ID       string           `json:"id"`
	Category string           `json:"category"`
	Prompt   string           `json:"prompt"`
	Options  []QuestionOption `json:"options"`
}

// Questionnaire is a fixed, versioned question set.
type Questionnaire struct {
	Version   string     `json:"version"`
	Questions []Question `json:"questions"`
}

// RiskScore is the deterministic output of scoring a complete response set.
type RiskScore struct {
	Raw        float64      `json:"raw"`
	Normalized float64      `json:"normalized"`
	Category   RiskCategory `json:"category"`
}

// RiskAssessment is an immutable scored submission. The latest one wins.
type RiskAssessment struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"user_id"`
	QuestionnaireVersion string         `json:"questionnaire_version"`
	QuestionResponses    map[string]int `json:"question_responses"`
	RiskScore            float64        `json:"risk_score"`
	RiskCategory         RiskCategory   `json:"risk_category"`
	CompletedAt          time.Time      `json:"completed_at"`
}

// Recommendation pairs a risk category with its suggested allocation.
type Recommendation struct {
	RiskCategory    RiskCategory `json:"risk_category"`
	Allocation      Allocation   `json:"allocation"`
	ExpectedReturn  float64      `json:"expected_return"` // annual percent
	Volatility      float64      `json:"volatility"`      // annual percent
	Explanation     string       `json:"explanation"`
	AssessmentID    string       `json:"assessment_id,omitempty"`
	AssessmentScore float64      `json:"assessment_score,omitempty"`
}
