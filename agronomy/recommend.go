package agronomy

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/farm"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/model"
	"github.com/agromitra/agromitra/weather"
	"github.com/agromitra/agromitra/workflow"
)

// ActionCropRecommendation is the business action name carried on workflow
// runs and stream messages.
const ActionCropRecommendation = "crop_recommendation"

// Step names of the crop recommendation workflow, in execution order.
const (
	StepCheckExisting           = "check_existing_recommendation"
	StepLoadFarmProfile         = "load_farm_profile"
	StepLoadWeatherForecast     = "load_weather_forecast"
	StepGenerateReasoning       = "generate_reasoning"
	StepGenerateRecommendations = "generate_recommendations"
	StepPersistComponents       = "persist_recommendation_components"
	StepSaveFinal               = "save_final_recommendation"
)

// RecommendationStore persists recommendations and their components. A
// missing entity is reported with an error of kind not_found.
type RecommendationStore interface {
	GetLatestRecommendationByFarm(ctx context.Context, farmID string) (*Recommendation, error)
	SaveRecommendation(ctx context.Context, rec *Recommendation) error
	SaveComponent(ctx context.Context, c *Component) error
	DeleteComponents(ctx context.Context, recommendationID string) error
}

// FarmStore loads farm profiles.
type FarmStore interface {
	GetFarmProfile(ctx context.Context, id string) (*farm.Profile, error)
}

// ImageResolver maps an English crop name to a hosted image URL. An empty
// URL with nil error means no image is seeded for the crop.
type ImageResolver interface {
	CropImageURL(ctx context.Context, englishName string) (string, error)
}

// ForecastProvider is the slice of the weather client the orchestrators
// need.
type ForecastProvider interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Current, error)
	FiveDayForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

// Recommender runs the crop recommendation workflow end to end.
type Recommender struct {
	store   RecommendationStore
	farms   FarmStore
	images  ImageResolver
	weather ForecastProvider
	client  ModelClient
	runs    workflow.RunStore
	events  workflow.EventStore
	policy  RetryPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// RecommenderOption configures a Recommender.
type RecommenderOption func(*Recommender)

// WithRetryPolicy overrides the default accept-after-one-retry policy.
func WithRetryPolicy(policy RetryPolicy) RecommenderOption {
	return func(r *Recommender) { r.policy = policy }
}

// WithRecommenderLogger sets the logger.
func WithRecommenderLogger(logger *slog.Logger) RecommenderOption {
	return func(r *Recommender) { r.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RecommenderOption {
	return func(r *Recommender) { r.now = now }
}

// NewRecommender creates the orchestrator.
func NewRecommender(store RecommendationStore, farms FarmStore, images ImageResolver, forecasts ForecastProvider, client ModelClient, runs workflow.RunStore, events workflow.EventStore, opts ...RecommenderOption) *Recommender {
	r := &Recommender{
		store:   store,
		farms:   farms,
		images:  images,
		weather: forecasts,
		client:  client,
		runs:    runs,
		events:  events,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend generates (or reuses) the crop recommendation for a farm. Every
// transition is recorded on a workflow run and streamed through the emitter;
// the returned error is always a domain error safe to surface.
func (r *Recommender) Recommend(ctx context.Context, farmID, language string, corr workflow.Correlation, emitter workflow.Emitter) (*Recommendation, error) {
	corr.FarmID = farmID
	rt := workflow.NewRuntime(ActionCropRecommendation, workflow.TypeCropRecommendation, r.runs, r.events, corr,
		map[string]any{"language": language},
		workflow.WithEmitter(emitter), workflow.WithLogger(r.logger))

	if err := rt.Start(ctx); err != nil {
		return nil, apperr.Internal(err)
	}

	rec, err := r.run(ctx, rt, farmID, language)
	if err != nil {
		return nil, r.failRun(ctx, rt, err)
	}
	return rec, nil
}

// failRun routes any step error to the runtime and returns the sanitized
// domain error for the caller.
func (r *Recommender) failRun(ctx context.Context, rt *workflow.Runtime, err error) error {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		r.logger.Error("Crop recommendation workflow failed",
			"workflow_id", rt.ID(),
			"step", rt.CurrentStep(),
			"error", err)
	}
	payload := map[string]any{"status_code": apperr.HTTPStatus(appErr.Kind)}
	if failErr := rt.Fail(ctx, appErr.Message, "", payload); failErr != nil {
		r.logger.Error("Recording workflow failure failed",
			"workflow_id", rt.ID(),
			"error", failErr)
	}
	return appErr
}

func (r *Recommender) run(ctx context.Context, rt *workflow.Runtime, farmID, language string) (*Recommendation, error) {
	now := r.now().UTC()
	today := DateOf(now)

	// Reuse a prior unexpired recommendation rather than paying for a
	// fresh generation. Any lookup failure counts as a miss.
	if err := rt.StartStep(ctx, StepCheckExisting, nil); err != nil {
		return nil, err
	}
	if prev, err := r.store.GetLatestRecommendationByFarm(ctx, farmID); err == nil && !prev.Expired(now) {
		r.populateImageURLs(ctx, prev)
		if err := r.store.SaveRecommendation(ctx, prev); err != nil {
			return nil, err
		}
		if err := rt.CompleteStep(ctx, StepCheckExisting, map[string]any{"reused": true, "recommendation_id": prev.ID}); err != nil {
			return nil, err
		}
		if err := rt.EmitResult(ctx, map[string]any{"recommendation_id": prev.ID}); err != nil {
			return nil, err
		}
		return prev, rt.Complete(ctx, nil)
	}
	if err := rt.CompleteStep(ctx, StepCheckExisting, map[string]any{"reused": false}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepLoadFarmProfile, nil); err != nil {
		return nil, err
	}
	profile, err := r.farms.GetFarmProfile(ctx, farmID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Farm profile not found.")
		}
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepLoadFarmProfile, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepLoadWeatherForecast, nil); err != nil {
		return nil, err
	}
	forecast, err := r.weather.FiveDayForecast(ctx, profile.Location.Latitude, profile.Location.Longitude)
	if err != nil {
		return nil, apperr.Unavailable("Could not retrieve weather forecast. Please try again later.")
	}
	if err := rt.CompleteStep(ctx, StepLoadWeatherForecast, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepGenerateReasoning, nil); err != nil {
		return nil, err
	}
	reasoningInput := map[string]any{
		"farm_profile":           profile,
		"language":               language,
		"weather_forecast_5d_3h": forecast,
		"current_date":           today.String(),
	}
	reasoning := &ReasoningReport{}
	if _, err := r.client.CompleteStructured(ctx, structuredRequest(model.CapabilityReasoning, reasoningSystemPrompt, reasoningInput), reasoning); err != nil {
		return nil, modelUnavailable(err)
	}
	if err := rt.EmitChunk(ctx, StepGenerateReasoning, "reasoning_report", map[string]any{"summary": reasoning.Summary, "warnings": reasoning.Warnings}); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepGenerateReasoning, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepGenerateRecommendations, nil); err != nil {
		return nil, err
	}
	generationInput := map[string]any{
		"farm_profile":           profile,
		"language":               language,
		"weather_forecast_5d_3h": forecast,
		"reasoning_report":       reasoning,
		"current_date":           today.String(),
	}
	req := structuredRequest(model.CapabilityRecommendation, recommendationSystemPrompt, generationInput)

	rec := &Recommendation{}
	if _, err := r.client.CompleteStructured(ctx, req, rec); err != nil {
		return nil, modelUnavailable(err)
	}

	if issues := CollectRecommendationIssues(rec, profile, today); len(issues) > 0 {
		if err := rt.EmitChunk(ctx, StepGenerateRecommendations, "validation_retry", map[string]any{"issues": issues}); err != nil {
			return nil, err
		}
		candidate, retryErr := RegenerateOnce(ctx, r.client, req, issues, rec)
		if retryErr != nil {
			// One corrective call only. If it fails, the original
			// candidate is still the best output available.
			r.logger.Warn("Validation retry failed, keeping original output",
				"workflow_id", rt.ID(),
				"error", retryErr)
		} else {
			rec = candidate
		}
		if remaining := CollectRecommendationIssues(rec, profile, today); len(remaining) > 0 && r.policy.Strict {
			return nil, apperr.Unprocessable("The generated recommendation failed validation. Please try again.")
		}
	}

	rec.AssignIDs()
	rec.FarmID = farmID
	rec.Timestamp = now
	rec.ExpirationDate = today.AddDays(RecommendationValidityDays)
	if rec.Status == "" {
		rec.Status = RecommendationSuccess
	}
	if err := rt.CompleteStep(ctx, StepGenerateRecommendations, map[string]any{"recommendation_id": rec.ID}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepPersistComponents, nil); err != nil {
		return nil, err
	}
	components := BuildComponents(rec, reasoning)
	if err := r.store.DeleteComponents(ctx, rec.ID); err != nil {
		return nil, err
	}
	for i := range components {
		if err := r.store.SaveComponent(ctx, &components[i]); err != nil {
			return nil, err
		}
		if err := rt.EmitChunk(ctx, StepPersistComponents, "component_saved", map[string]any{
			"component_type": string(components[i].Type),
			"order":          components[i].Order,
		}); err != nil {
			return nil, err
		}
	}
	if err := rt.CompleteStep(ctx, StepPersistComponents, map[string]any{"components": len(components)}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepSaveFinal, nil); err != nil {
		return nil, err
	}
	r.populateImageURLs(ctx, rec)
	if err := r.store.SaveRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepSaveFinal, nil); err != nil {
		return nil, err
	}

	if err := rt.EmitResult(ctx, map[string]any{"recommendation_id": rec.ID}); err != nil {
		return nil, err
	}
	return rec, rt.Complete(ctx, nil)
}

// populateImageURLs resolves seeded crop images onto every crop entry.
// Best-effort: a failed or empty lookup leaves the entry untouched.
func (r *Recommender) populateImageURLs(ctx context.Context, rec *Recommendation) {
	if r.images == nil {
		return
	}
	resolve := func(crop *MonoCrop) {
		url, err := r.images.CropImageURL(ctx, crop.EnglishName())
		if err == nil && url != "" {
			crop.ImageURL = url
		}
	}
	for i := range rec.MonoCrops {
		resolve(&rec.MonoCrops[i])
	}
	for g := range rec.InterCrops {
		for i := range rec.InterCrops[g].Crops {
			resolve(&rec.InterCrops[g].Crops[i])
		}
	}
}

// structuredRequest builds a JSON-mode request with a single user turn
// carrying the marshaled input payload.
func structuredRequest(capability model.Capability, system string, input map[string]any) llm.Request {
	payload, err := json.Marshal(input)
	if err != nil {
		payload = []byte("{}")
	}
	return llm.Request{
		Capability:   capability.String(),
		System:       system,
		Contents:     []llm.Content{llm.TextContent("user", string(payload))},
		JSONResponse: true,
	}
}

// modelUnavailable maps a model client failure to the caller-safe
// service-unavailable error, preserving the cause for logs.
func modelUnavailable(err error) error {
	return apperr.Wrap(apperr.KindUnavailable,
		"The AI service is currently unavailable. Please try again later.", err)
}
