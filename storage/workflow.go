package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agromitra/agromitra/workflow"
)

// eventKey builds a per-run key that sorts in append order when listed by
// prefix.
func eventKey(workflowID string, seq int64) string {
	return fmt.Sprintf("%s.%09d", workflowID, seq)
}

// SaveRun upserts the current state of a workflow run. Implements
// workflow.RunStore.
func (s *Store) SaveRun(ctx context.Context, run *workflow.Run) error {
	return putJSON(ctx, s.workflowRuns, run.ID, run)
}

// GetRun retrieves a workflow run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*workflow.Run, error) {
	var run workflow.Run
	if err := getJSON(ctx, s.workflowRuns, id, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// AppendEvent appends a lifecycle event to a run's log. Implements
// workflow.EventStore.
func (s *Store) AppendEvent(ctx context.Context, event *workflow.Event) error {
	return putJSON(ctx, s.workflowEvents, eventKey(event.WorkflowID, event.Seq), event)
}

// ListEvents returns a run's events in append order. limit <= 0 returns
// all of them.
func (s *Store) ListEvents(ctx context.Context, workflowID string, limit int) ([]*workflow.Event, error) {
	keys, err := keysWithPrefix(ctx, s.workflowEvents, workflowID+".")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	events := make([]*workflow.Event, 0, len(keys))
	for _, key := range keys {
		entry, err := s.workflowEvents.Get(ctx, key)
		if err != nil {
			continue
		}
		var event workflow.Event
		if err := json.Unmarshal(entry.Value(), &event); err != nil {
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}
