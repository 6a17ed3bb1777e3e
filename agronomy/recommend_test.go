package agronomy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/farm"
	"github.com/agromitra/agromitra/weather"
	"github.com/agromitra/agromitra/workflow"
)

// fakeRecStore records the order of persistence operations.
type fakeRecStore struct {
	latest     *Recommendation
	saved      []*Recommendation
	components map[string][]*Component
	ops        []string
}

func newFakeRecStore() *fakeRecStore {
	return &fakeRecStore{components: map[string][]*Component{}}
}

func (f *fakeRecStore) GetLatestRecommendationByFarm(_ context.Context, _ string) (*Recommendation, error) {
	if f.latest == nil {
		return nil, apperr.NotFound("no recommendation")
	}
	return f.latest, nil
}

func (f *fakeRecStore) SaveRecommendation(_ context.Context, rec *Recommendation) error {
	f.ops = append(f.ops, "save_recommendation")
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeRecStore) SaveComponent(_ context.Context, c *Component) error {
	f.ops = append(f.ops, "save_component")
	f.components[c.RecommendationID] = append(f.components[c.RecommendationID], c)
	return nil
}

func (f *fakeRecStore) DeleteComponents(_ context.Context, recommendationID string) error {
	f.ops = append(f.ops, "delete_components")
	delete(f.components, recommendationID)
	return nil
}

type fakeFarmStore struct {
	profile *farm.Profile
}

func (f *fakeFarmStore) GetFarmProfile(_ context.Context, id string) (*farm.Profile, error) {
	if f.profile == nil {
		return nil, apperr.NotFound("no farm")
	}
	return f.profile, nil
}

type fakeForecasts struct {
	forecastErr error
	currentErr  error
}

func (f *fakeForecasts) Current(_ context.Context, _, _ float64) (*weather.Current, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return &weather.Current{}, nil
}

func (f *fakeForecasts) FiveDayForecast(_ context.Context, _, _ float64) (*weather.Forecast, error) {
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return &weather.Forecast{}, nil
}

type fakeRunStore struct {
	runs []workflow.Run
}

func (f *fakeRunStore) SaveRun(_ context.Context, run *workflow.Run) error {
	// Deep-copy so later mutations don't rewrite history.
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	var snapshot workflow.Run
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	f.runs = append(f.runs, snapshot)
	return nil
}

func (f *fakeRunStore) last() *workflow.Run {
	if len(f.runs) == 0 {
		return nil
	}
	return &f.runs[len(f.runs)-1]
}

type fakeEventStore struct {
	events []*workflow.Event
}

func (f *fakeEventStore) AppendEvent(_ context.Context, event *workflow.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventStore) types() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

func testProfile() *farm.Profile {
	return &farm.Profile{
		ID:          "farm-1",
		WaterSource: farm.WaterBorewell,
		Location:    farm.Location{Latitude: 17.4, Longitude: 78.5},
	}
}

const testReasoningJSON = `{"summary":"soil and season fit pulses","observations":["loamy soil"]}`

func recommendationJSON(start, optimal, end string) string {
	return `{"status":"success","mono_crops":[{"crop_name":"Paddy","crop_name_english":"Paddy",` +
		`"sowing_window":{"start_date":"` + start + `","optimal_date":"` + optimal + `","end_date":"` + end + `"}}],` +
		`"inter_crops":[]}`
}

func fixedClock(t *testing.T, date string) func() time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return func() time.Time { return parsed }
}

func TestRecommendReusesUnexpiredRecommendation(t *testing.T) {
	store := newFakeRecStore()
	store.latest = &Recommendation{
		ID:             "rec-1",
		FarmID:         "farm-1",
		ExpirationDate: NewDate(2024, time.July, 6),
	}
	client := &scriptedClient{}
	runs := &fakeRunStore{}
	events := &fakeEventStore{}

	r := NewRecommender(store, &fakeFarmStore{profile: testProfile()}, nil, &fakeForecasts{}, client, runs, events,
		WithClock(fixedClock(t, "2024-07-01")))

	rec, err := r.Recommend(context.Background(), "farm-1", "te", workflow.Correlation{UserID: "u1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)

	// Reuse means no model calls at all.
	assert.Empty(t, client.requests)

	assert.Equal(t, []string{
		workflow.EventWorkflowStarted,
		workflow.EventStepStarted, workflow.EventStepCompleted,
		workflow.EventResult,
		workflow.EventWorkflowCompleted,
	}, events.types())
	assert.Equal(t, workflow.StatusCompleted, runs.last().Status)
}

func TestRecommendExpiredRecommendationTriggersGeneration(t *testing.T) {
	store := newFakeRecStore()
	store.latest = &Recommendation{
		ID:             "rec-stale",
		ExpirationDate: NewDate(2024, time.June, 20),
	}
	client := &scriptedClient{responses: []string{
		testReasoningJSON,
		recommendationJSON("2024-07-05", "2024-07-15", "2024-08-01"),
	}}
	runs := &fakeRunStore{}
	events := &fakeEventStore{}

	r := NewRecommender(store, &fakeFarmStore{profile: testProfile()}, nil, &fakeForecasts{}, client, runs, events,
		WithClock(fixedClock(t, "2024-07-01")))

	rec, err := r.Recommend(context.Background(), "farm-1", "te", workflow.Correlation{}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, "rec-stale", rec.ID)
	assert.Len(t, client.requests, 2)
	assert.Equal(t, NewDate(2024, time.July, 8), rec.ExpirationDate)
	assert.Equal(t, workflow.StatusCompleted, runs.last().Status)
}

func TestRecommendWeatherFailureFailsRun(t *testing.T) {
	store := newFakeRecStore()
	client := &scriptedClient{}
	runs := &fakeRunStore{}
	events := &fakeEventStore{}

	r := NewRecommender(store, &fakeFarmStore{profile: testProfile()}, nil,
		&fakeForecasts{forecastErr: errors.New("upstream 502")}, client, runs, events,
		WithClock(fixedClock(t, "2024-07-01")))

	_, err := r.Recommend(context.Background(), "farm-1", "te", workflow.Correlation{}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnavailable))
	// The raw upstream error never reaches the caller.
	assert.NotContains(t, err.Error(), "502")

	run := runs.last()
	assert.Equal(t, workflow.StatusFailed, run.Status)
	assert.Equal(t, StepLoadWeatherForecast, run.CurrentStep)

	last := events.events[len(events.events)-1]
	assert.Equal(t, workflow.EventWorkflowFailed, last.EventType)
	assert.Equal(t, StepLoadWeatherForecast, last.Step)
}

func TestRecommendFarmNotFound(t *testing.T) {
	r := NewRecommender(newFakeRecStore(), &fakeFarmStore{}, nil, &fakeForecasts{},
		&scriptedClient{}, &fakeRunStore{}, &fakeEventStore{},
		WithClock(fixedClock(t, "2024-07-01")))

	_, err := r.Recommend(context.Background(), "farm-missing", "te", workflow.Correlation{}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRecommendValidationRetryIsBoundedToOne(t *testing.T) {
	store := newFakeRecStore()
	// The generated window starts after it ends, both before and after
	// the single corrective call.
	invalid := recommendationJSON("2024-01-10", "2024-01-10", "2024-01-05")
	client := &scriptedClient{responses: []string{testReasoningJSON, invalid, invalid}}
	runs := &fakeRunStore{}
	events := &fakeEventStore{}

	r := NewRecommender(store, &fakeFarmStore{profile: testProfile()}, nil, &fakeForecasts{}, client, runs, events,
		WithClock(fixedClock(t, "2024-01-01")))

	rec, err := r.Recommend(context.Background(), "farm-1", "te", workflow.Correlation{}, nil)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// reasoning + generation + exactly one regeneration, then the still
	// invalid candidate is accepted as-is.
	assert.Len(t, client.requests, 3)
	assert.Equal(t, workflow.StatusCompleted, runs.last().Status)

	var retryChunks int
	for _, e := range events.events {
		if e.EventType == workflow.EventChunk && e.Payload["chunk_type"] == "validation_retry" {
			retryChunks++
		}
	}
	assert.Equal(t, 1, retryChunks)
}

func TestRecommendStrictPolicyRejectsInvalidOutput(t *testing.T) {
	invalid := recommendationJSON("2024-01-10", "2024-01-10", "2024-01-05")
	client := &scriptedClient{responses: []string{testReasoningJSON, invalid, invalid}}
	runs := &fakeRunStore{}

	r := NewRecommender(newFakeRecStore(), &fakeFarmStore{profile: testProfile()}, nil, &fakeForecasts{},
		client, runs, &fakeEventStore{},
		WithClock(fixedClock(t, "2024-01-01")),
		WithRetryPolicy(RetryPolicy{Strict: true}))

	_, err := r.Recommend(context.Background(), "farm-1", "te", workflow.Correlation{}, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnprocessable))
	assert.Len(t, client.requests, 3)
	assert.Equal(t, workflow.StatusFailed, runs.last().Status)
}

func TestRecommendComponentsReplacedBeforeSave(t *testing.T) {
	store := newFakeRecStore()
	client := &scriptedClient{responses: []string{
		testReasoningJSON,
		recommendationJSON("2024-07-05", "2024-07-15", "2024-08-01"),
	}}

	r := NewRecommender(store, &fakeFarmStore{profile: testProfile()}, nil, &fakeForecasts{},
		client, &fakeRunStore{}, &fakeEventStore{},
		WithClock(fixedClock(t, "2024-07-01")))

	rec, err := r.Recommend(context.Background(), "farm-1", "te", workflow.Correlation{}, nil)
	require.NoError(t, err)

	// Stale fragments are purged before any new component is written.
	require.NotEmpty(t, store.ops)
	sawDelete := false
	for _, op := range store.ops {
		if op == "delete_components" {
			sawDelete = true
		}
		if op == "save_component" {
			assert.True(t, sawDelete, "components must be purged before the first save")
		}
	}
	assert.True(t, sawDelete)

	// reasoning + one mono crop.
	assert.Len(t, store.components[rec.ID], 2)
}
