// Package pesticide holds pest and disease diagnosis: the recommendation
// models, the success/error result envelope, component decomposition, the
// generation orchestrator, and the stage update rules.
package pesticide

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage tracks a recommended pesticide through selection and application.
type Stage string

const (
	StageRecommended Stage = "recommended"
	StageSelected    Stage = "selected"
	StageApplied     Stage = "applied"
)

// Type classifies a pesticide.
type Type string

const (
	TypeChemical   Type = "chemical"
	TypeOrganic    Type = "organic"
	TypeBiological Type = "biological"
)

// Info is one recommended pesticide.
type Info struct {
	ID                string     `json:"id"`
	PesticideName     string     `json:"pesticide_name"`
	PesticideType     Type       `json:"pesticide_type"`
	Dosage            string     `json:"dosage"`
	ApplicationMethod string     `json:"application_method"`
	Precautions       []string   `json:"precautions"`
	Explanation       string     `json:"explanation"`
	Rank              int        `json:"rank"`
	Stage             Stage      `json:"stage"`
	AppliedDate       *time.Time `json:"applied_date,omitempty"`
}

// Recommendation is a successful diagnosis with pesticide advice.
type Recommendation struct {
	ID              string    `json:"id"`
	FarmID          string    `json:"farm_id,omitempty"`
	CropID          string    `json:"crop_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	DiseaseDetails  string    `json:"disease_details"`
	Recommendations []Info    `json:"recommendations"`
	GeneralAdvice   string    `json:"general_advice"`
}

// DiagnosticError is returned when the model could not identify the
// disease from the provided input.
type DiagnosticError struct {
	Reason              string `json:"reason"`
	SuggestInputChanges string `json:"suggest_input_changes"`
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// AssignIDs gives the recommendation and each pesticide entry a backend id,
// replacing whatever the model produced.
func (r *Recommendation) AssignIDs() {
	if r.ID == "" {
		r.ID = newID()
	}
	for i := range r.Recommendations {
		r.Recommendations[i].ID = newID()
		if r.Recommendations[i].Stage == "" {
			r.Recommendations[i].Stage = StageRecommended
		}
	}
}
