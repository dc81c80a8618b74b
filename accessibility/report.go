package accessibility

import "github.com/vaanihq/voicecore/validate"

// Feature describes one accessibility capability the platform offers.
type Feature struct {
	FeatureID             string `json:"feature_id"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	Category              string `json:"category"`
	IsAvailable           bool   `json:"is_available"`
	RequiresConfiguration bool   `json:"requires_configuration"`

	WCAGLevel    string   `json:"wcag_level,omitempty"`
	WCAGCriteria []string `json:"wcag_criteria,omitempty"`
}

// Report summarizes accessibility compliance for a deployment surface.
type Report struct {
	OverallScore        float64   `json:"overall_score"`
	WCAGComplianceLevel string    `json:"wcag_compliance_level"`
	SupportedFeatures   []Feature `json:"supported_features"`
	MissingFeatures     []string  `json:"missing_features,omitempty"`
	Recommendations     []string  `json:"recommendations,omitempty"`

	LevelACompliance   bool `json:"level_a_compliance"`
	LevelAACompliance  bool `json:"level_aa_compliance"`
	LevelAAACompliance bool `json:"level_aaa_compliance"`
}

// Validate checks the score range.
func (r *Report) Validate() error {
	if r.OverallScore < 0 || r.OverallScore > 100 {
		return validate.Errorf("overall_score", "must be between 0 and 100, got %g", r.OverallScore)
	}
	return nil
}

// FeaturesByCategory returns the supported features in the given category.
func (r *Report) FeaturesByCategory(category string) []Feature {
	var out []Feature
	for _, f := range r.SupportedFeatures {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// IsFeatureSupported reports whether a feature id appears in the supported
// set.
func (r *Report) IsFeatureSupported(featureID string) bool {
	for _, f := range r.SupportedFeatures {
		if f.FeatureID == featureID {
			return true
		}
	}
	return false
}
