package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Runtime wraps one Run and is the only legal way to mutate it. Every
// transition is persisted to the run store, appended to the event log, and
// best-effort streamed to the emitter, in that order. An emitter failure
// never rolls back or blocks the first two; a store failure propagates to
// the caller.
type Runtime struct {
	run     *Run
	runs    RunStore
	events  EventStore
	emitter Emitter
	logger  *slog.Logger
	seq     int64
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithEmitter sets the best-effort stream emitter. Nil disables streaming.
func WithEmitter(e Emitter) RuntimeOption {
	return func(rt *Runtime) {
		rt.emitter = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// NewRuntime creates a Runtime around a fresh pending run. Nothing is
// persisted until Start.
func NewRuntime(action string, workflowType Type, runs RunStore, events EventStore, corr Correlation, metadata map[string]any, opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		run:    NewRun(action, workflowType, corr, metadata),
		runs:   runs,
		events: events,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// ID returns the workflow id.
func (rt *Runtime) ID() string {
	return rt.run.ID
}

// Action returns the business action name.
func (rt *Runtime) Action() string {
	return rt.run.Action
}

// CurrentStep returns the most recently started, completed, or failed step
// name, or "" if no step has run yet.
func (rt *Runtime) CurrentStep() string {
	return rt.run.CurrentStep
}

// Run returns the wrapped run. Callers must not mutate it directly.
func (rt *Runtime) Run() *Run {
	return rt.run
}

// Start transitions the run to running, persists it for the first time and
// emits workflow_started. It must be called exactly once, before any step
// operations.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.run.Status = StatusRunning
	if err := rt.save(ctx); err != nil {
		return err
	}
	runsStarted.WithLabelValues(string(rt.run.Type)).Inc()
	return rt.emitEvent(ctx, EventWorkflowStarted, "", map[string]any{"status": string(rt.run.Status)})
}

// StartStep upserts the named step to in_progress, clearing any prior error
// and completion, and increments its attempt counter. Calling it again on a
// step already in progress is a legal retry of that step.
func (rt *Runtime) StartStep(ctx context.Context, step string, payload map[string]any) error {
	now := time.Now().UTC()
	s := rt.run.step(step)
	s.Status = StepInProgress
	s.StartedAt = &now
	s.CompletedAt = nil
	s.Error = ""
	s.Attempts++

	rt.run.CurrentStep = step
	if err := rt.save(ctx); err != nil {
		return err
	}
	return rt.emitEvent(ctx, EventStepStarted, step, payload)
}

// CompleteStep upserts the named step to completed. A missing started_at is
// backfilled so completed_at never precedes it.
func (rt *Runtime) CompleteStep(ctx context.Context, step string, payload map[string]any) error {
	now := time.Now().UTC()
	s := rt.run.step(step)
	s.Status = StepCompleted
	if s.StartedAt == nil {
		s.StartedAt = &now
	}
	s.CompletedAt = &now
	s.Error = ""

	rt.run.CurrentStep = step
	if err := rt.save(ctx); err != nil {
		return err
	}
	return rt.emitEvent(ctx, EventStepCompleted, step, payload)
}

// EmitChunk appends and streams an intermediate progress payload without
// changing run status. step may be empty for chunks not tied to a step.
func (rt *Runtime) EmitChunk(ctx context.Context, step, chunkType string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	payload := map[string]any{"chunk_type": chunkType, "data": data}
	return rt.emitEvent(ctx, EventChunk, step, payload)
}

// EmitResult appends and streams the final payload of the workflow, tagged
// with the current step.
func (rt *Runtime) EmitResult(ctx context.Context, data map[string]any) error {
	return rt.emitEvent(ctx, EventResult, rt.run.CurrentStep, data)
}

// Complete marks the run completed. Terminal: no step or chunk calls are
// valid afterwards.
func (rt *Runtime) Complete(ctx context.Context, payload map[string]any) error {
	rt.run.Status = StatusCompleted
	if err := rt.save(ctx); err != nil {
		return err
	}
	runsFinished.WithLabelValues(string(rt.run.Type), string(StatusCompleted)).Inc()
	if payload == nil {
		payload = map[string]any{"status": string(rt.run.Status)}
	}
	return rt.emitEvent(ctx, EventWorkflowCompleted, rt.run.CurrentStep, payload)
}

// Fail marks the given step (or the current step when step is empty) failed
// with the error message, then unconditionally marks the run failed.
// Terminal.
func (rt *Runtime) Fail(ctx context.Context, errorMessage, step string, payload map[string]any) error {
	targetStep := step
	if targetStep == "" {
		targetStep = rt.run.CurrentStep
	}
	if targetStep != "" {
		now := time.Now().UTC()
		s := rt.run.step(targetStep)
		s.Status = StepFailed
		if s.StartedAt == nil {
			s.StartedAt = &now
		}
		s.CompletedAt = &now
		s.Error = errorMessage
		rt.run.CurrentStep = targetStep
	}

	rt.run.Status = StatusFailed
	if err := rt.save(ctx); err != nil {
		return err
	}
	runsFinished.WithLabelValues(string(rt.run.Type), string(StatusFailed)).Inc()

	eventPayload := map[string]any{"error": errorMessage}
	for k, v := range payload {
		eventPayload[k] = v
	}
	return rt.emitEvent(ctx, EventWorkflowFailed, targetStep, eventPayload)
}

// save persists the run, refreshing updated_at.
func (rt *Runtime) save(ctx context.Context) error {
	rt.run.UpdatedAt = time.Now().UTC()
	if err := rt.runs.SaveRun(ctx, rt.run); err != nil {
		return fmt.Errorf("save workflow run: %w", err)
	}
	return nil
}

// emitEvent appends the event to the log, then best-effort streams it.
// Persistence is the source of truth; a stream failure is logged and
// discarded.
func (rt *Runtime) emitEvent(ctx context.Context, eventType, step string, payload map[string]any) error {
	rt.seq++
	event := NewEvent(rt.run.ID, rt.run.Action, eventType, step, payload, rt.seq)
	if err := rt.events.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("append workflow event: %w", err)
	}
	eventsAppended.WithLabelValues(eventType).Inc()

	if rt.emitter == nil {
		return nil
	}

	var stepRef *string
	if step != "" {
		stepRef = &step
	}
	msg := Message{
		Action:         rt.run.Action,
		Event:          eventType,
		WorkflowID:     rt.run.ID,
		WorkflowStatus: string(rt.run.Status),
		Step:           stepRef,
		Data:           payload,
		TS:             event.TS.Format(time.RFC3339Nano),
	}
	if err := rt.emitter.Emit(ctx, msg); err != nil {
		streamDrops.Inc()
		rt.logger.Debug("Stream emit failed",
			"workflow_id", rt.run.ID,
			"event_type", eventType,
			"error", err)
	}
	return nil
}
