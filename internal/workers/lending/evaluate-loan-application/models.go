package evaluateloanapplication

type Input struct {
	ApplicationID string                 `json:"applicationId"`
	Applicant     map[string]interface{} `json:"applicant"`
}

type Output struct {
	ApplicationID        string             `json:"applicationId"`
	DecisionID           string             `json:"decisionId"`
	Approved             bool               `json:"approved"`
	Verdict              string             `json:"verdict"`
	VerdictMessage       string             `json:"verdictMessage"`
	HousingToIncomeRatio float64            `json:"housingToIncomeRatio"`
	FeatureVector        map[string]float64 `json:"featureVector"`
	ModelVersion         string             `json:"modelVersion"`
	SchemaVersion        string             `json:"schemaVersion"`
	EvaluatedAt          string             `json:"evaluatedAt"` // ISO 8601
}
