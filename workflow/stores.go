package workflow

import "context"

// RunStore persists the mutable current state of a run. SaveRun is a
// replace-by-id upsert.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
}

// EventStore appends immutable lifecycle events. Implementations must
// preserve append order per workflow id.
type EventStore interface {
	AppendEvent(ctx context.Context, event *Event) error
}

// Emitter forwards a message to one logical recipient (a user's set of live
// connections). Delivery is best-effort: the Runtime logs and discards any
// error, so implementations are free to fail without affecting persistence.
type Emitter interface {
	Emit(ctx context.Context, msg Message) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, msg Message) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
