package recordloandecision

import "encoding/json"

// Input is the process state after evaluate-loan-application completed.
type Input struct {
	DecisionID           string             `json:"decisionId"`
	ApplicationID        string             `json:"applicationId"`
	Applicant            json.RawMessage    `json:"applicant"`
	Approved             bool               `json:"approved"`
	Verdict              string             `json:"verdict"`
	HousingToIncomeRatio float64            `json:"housingToIncomeRatio"`
	FeatureVector        map[string]float64 `json:"featureVector"`
	ModelVersion         string             `json:"modelVersion"`
	SchemaVersion        string             `json:"schemaVersion"`
	EvaluatedAt          string             `json:"evaluatedAt"`
}

type Output struct {
	DecisionID string `json:"decisionId"`
	Recorded   bool   `json:"recorded"`
	RecordedAt string `json:"recordedAt"` // ISO 8601
}
