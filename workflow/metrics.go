package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agromitra_workflow_runs_started_total",
		Help: "Workflow runs started, by workflow type.",
	}, []string{"workflow_type"})

	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agromitra_workflow_runs_finished_total",
		Help: "Workflow runs finished, by workflow type and terminal status.",
	}, []string{"workflow_type", "status"})

	eventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agromitra_workflow_events_total",
		Help: "Workflow events appended to the event log, by event type.",
	}, []string{"event_type"})

	streamDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agromitra_workflow_stream_drops_total",
		Help: "Stream messages dropped because the emitter reported failure.",
	})
)
