// Package workflow tracks AI workflow executions: one Run per invocation of
// a business action, named steps within the run, and an append-only event
// log. The Runtime is the only legal way to mutate a Run.
package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a workflow run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepStatus is the lifecycle state of a single step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// Type enumerates the business workflows.
type Type string

const (
	TypeCropRecommendation      Type = "crop_recommendation"
	TypeCropSelection           Type = "crop_selection"
	TypePesticideRecommendation Type = "pesticide_recommendation"
	TypeFarmSurvey              Type = "farm_survey"
	TypeGeneralChat             Type = "general_chat"
)

// Step is one named phase within a run, upserted by name: re-entering a step
// name updates the existing entry rather than duplicating it.
type Step struct {
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
}

// Run is the mutable current-state record of one workflow execution.
type Run struct {
	ID          string           `json:"id"`
	Action      string           `json:"action"`
	Type        Type             `json:"workflow_type"`
	Status      Status           `json:"status"`
	UserID      string           `json:"user_id,omitempty"`
	RequestID   string           `json:"request_id,omitempty"`
	FarmID      string           `json:"farm_id,omitempty"`
	CropID      string           `json:"crop_id,omitempty"`
	ChatID      string           `json:"chat_id,omitempty"`
	CurrentStep string           `json:"current_step,omitempty"`
	Steps       map[string]*Step `json:"steps"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Correlation carries the optional identifiers attached to a run for later
// lookup and audit. Zero values are simply omitted.
type Correlation struct {
	UserID    string
	RequestID string
	FarmID    string
	CropID    string
	ChatID    string
}

// NewRun creates an in-memory run in the pending state. It is not persisted
// until Runtime.Start.
func NewRun(action string, workflowType Type, corr Correlation, metadata map[string]any) *Run {
	now := time.Now().UTC()
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Run{
		ID:        uuid.New().String(),
		Action:    action,
		Type:      workflowType,
		Status:    StatusPending,
		UserID:    corr.UserID,
		RequestID: corr.RequestID,
		FarmID:    corr.FarmID,
		CropID:    corr.CropID,
		ChatID:    corr.ChatID,
		Steps:     map[string]*Step{},
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// step returns the named step, creating it in place if absent.
func (r *Run) step(name string) *Step {
	if r.Steps == nil {
		r.Steps = map[string]*Step{}
	}
	s, ok := r.Steps[name]
	if !ok {
		s = &Step{Name: name, Status: StepPending}
		r.Steps[name] = s
	}
	return s
}
