package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the Runtime.
const (
	EventWorkflowStarted   = "workflow_started"
	EventStepStarted       = "step_started"
	EventStepCompleted     = "step_completed"
	EventChunk             = "chunk"
	EventResult            = "result"
	EventWorkflowCompleted = "workflow_completed"
	EventWorkflowFailed    = "workflow_failed"
)

// Event is one immutable lifecycle occurrence in a run's history. Events for
// one workflow, ordered by Seq (ties broken by TS), reconstruct the full run.
type Event struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	Action     string         `json:"action"`
	EventType  string         `json:"event_type"`
	Step       string         `json:"step,omitempty"`
	Payload    map[string]any `json:"payload"`
	Seq        int64          `json:"seq"`
	TS         time.Time      `json:"ts"`
}

// NewEvent creates an event for the given run with a fresh id and timestamp.
func NewEvent(workflowID, action, eventType, step string, payload map[string]any, seq int64) *Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Event{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Action:     action,
		EventType:  eventType,
		Step:       step,
		Payload:    payload,
		Seq:        seq,
		TS:         time.Now().UTC(),
	}
}

// Message is the wire shape streamed to a connected client on every event.
type Message struct {
	Action         string         `json:"action"`
	Event          string         `json:"event"`
	WorkflowID     string         `json:"workflow_id"`
	WorkflowStatus string         `json:"workflow_status"`
	Step           *string        `json:"step"`
	Data           map[string]any `json:"data"`
	TS             string         `json:"ts"`
}
