package agronomy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/model"
	"github.com/agromitra/agromitra/weather"
	"github.com/agromitra/agromitra/workflow"
)

// ActionCropSelection is the business action name for the selection
// workflow.
const ActionCropSelection = "select_crop_from_recommendation"

// Step names of the crop selection workflow, in execution order.
const (
	StepLoadSelectionContext = "load_selection_context"
	StepGenerateCropPlan     = "generate_crop_plan"
	StepPersistSelection     = "persist_selection"
)

// SelectionStore persists the per-crop plan records produced when a farmer
// commits to a recommendation.
type SelectionStore interface {
	GetRecommendation(ctx context.Context, id string) (*Recommendation, error)
	SaveCalendar(ctx context.Context, cal *CultivationCalendar) error
	SaveInvestment(ctx context.Context, inv *InvestmentBreakdown) error
	SaveSoilHealth(ctx context.Context, sh *SoilHealth) error
	SaveCultivatingCrop(ctx context.Context, c *CultivatingCrop) error
	SaveIntercroppingDetails(ctx context.Context, d *IntercroppingDetails) error
}

// selectedCrop is the resolved target of a selection: exactly one of mono
// or group is set.
type selectedCrop struct {
	mono  *MonoCrop
	group *InterCrop
}

// crops returns the member crops of the selection in plan order.
func (s *selectedCrop) crops() []MonoCrop {
	if s.mono != nil {
		return []MonoCrop{*s.mono}
	}
	return s.group.Crops
}

// Selector runs the crop selection workflow: it turns one picked
// recommendation entry into a cultivation calendar, an investment breakdown
// and a cultivating-crop record per member crop.
type Selector struct {
	store   SelectionStore
	farms   FarmStore
	weather ForecastProvider
	client  ModelClient
	runs    workflow.RunStore
	events  workflow.EventStore
	policy  RetryPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithSelectorRetryPolicy overrides the default retry policy.
func WithSelectorRetryPolicy(policy RetryPolicy) SelectorOption {
	return func(s *Selector) { s.policy = policy }
}

// WithSelectorLogger sets the logger.
func WithSelectorLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = logger }
}

// WithSelectorClock overrides the time source.
func WithSelectorClock(now func() time.Time) SelectorOption {
	return func(s *Selector) { s.now = now }
}

// NewSelector creates the orchestrator.
func NewSelector(store SelectionStore, farms FarmStore, forecasts ForecastProvider, client ModelClient, runs workflow.RunStore, events workflow.EventStore, opts ...SelectorOption) *Selector {
	s := &Selector{
		store:   store,
		farms:   farms,
		weather: forecasts,
		client:  client,
		runs:    runs,
		events:  events,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select generates and persists the full plan for one picked crop or
// intercropping group.
func (s *Selector) Select(ctx context.Context, farmID, recommendationID, selectedCropID, language string, corr workflow.Correlation, emitter workflow.Emitter) (*Selection, error) {
	corr.FarmID = farmID
	corr.CropID = selectedCropID
	rt := workflow.NewRuntime(ActionCropSelection, workflow.TypeCropSelection, s.runs, s.events, corr,
		map[string]any{"language": language, "recommendation_id": recommendationID},
		workflow.WithEmitter(emitter), workflow.WithLogger(s.logger))

	if err := rt.Start(ctx); err != nil {
		return nil, apperr.Internal(err)
	}

	sel, err := s.run(ctx, rt, farmID, recommendationID, selectedCropID, language)
	if err != nil {
		appErr := apperr.From(err)
		if appErr.Kind == apperr.KindInternal {
			s.logger.Error("Crop selection workflow failed",
				"workflow_id", rt.ID(),
				"step", rt.CurrentStep(),
				"error", err)
		}
		payload := map[string]any{"status_code": apperr.HTTPStatus(appErr.Kind)}
		if failErr := rt.Fail(ctx, appErr.Message, "", payload); failErr != nil {
			s.logger.Error("Recording workflow failure failed",
				"workflow_id", rt.ID(),
				"error", failErr)
		}
		return nil, appErr
	}
	return sel, nil
}

func (s *Selector) run(ctx context.Context, rt *workflow.Runtime, farmID, recommendationID, selectedCropID, language string) (*Selection, error) {
	today := DateOf(s.now())

	if err := rt.StartStep(ctx, StepLoadSelectionContext, nil); err != nil {
		return nil, err
	}

	profile, err := s.farms.GetFarmProfile(ctx, farmID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Farm profile not found.")
		}
		return nil, err
	}

	// The remaining context loads are independent of each other.
	var (
		forecast *weather.Forecast
		current  *weather.Current
		target   *selectedCrop
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		f, err := s.weather.FiveDayForecast(groupCtx, profile.Location.Latitude, profile.Location.Longitude)
		if err != nil {
			return apperr.Unavailable("Could not retrieve weather forecast. Please try again later.")
		}
		forecast = f
		return nil
	})
	group.Go(func() error {
		// Current conditions are enrichment; the forecast alone is
		// enough to plan against.
		c, err := s.weather.Current(groupCtx, profile.Location.Latitude, profile.Location.Longitude)
		if err == nil {
			current = c
		}
		return nil
	})
	group.Go(func() error {
		t, err := s.findSelectedCrop(groupCtx, recommendationID, selectedCropID)
		if err != nil {
			return err
		}
		target = t
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepLoadSelectionContext, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepGenerateReasoning, nil); err != nil {
		return nil, err
	}
	reasoningInput := map[string]any{
		"farm_profile":     profile,
		"language":         language,
		"selected_crop":    target.payload(),
		"weather_forecast": forecast,
		"current_weather":  current,
		"current_date":     today.String(),
	}
	reasoning := &ReasoningReport{}
	if _, err := s.client.CompleteStructured(ctx, structuredRequest(model.CapabilityReasoning, reasoningSystemPrompt, reasoningInput), reasoning); err != nil {
		return nil, modelUnavailable(err)
	}
	if err := rt.EmitChunk(ctx, StepGenerateReasoning, "reasoning_report", map[string]any{"summary": reasoning.Summary, "warnings": reasoning.Warnings}); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepGenerateReasoning, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepGenerateCropPlan, nil); err != nil {
		return nil, err
	}
	planInput := map[string]any{
		"farm_profile":     profile,
		"language":         language,
		"selected_crop":    target.payload(),
		"weather_forecast": forecast,
		"current_weather":  current,
		"reasoning_report": reasoning,
		"current_date":     today.String(),
	}
	req := structuredRequest(model.CapabilityRecommendation, selectionSystemPrompt, planInput)

	sel := &Selection{}
	if _, err := s.client.CompleteStructured(ctx, req, sel); err != nil {
		return nil, modelUnavailable(err)
	}

	if issues := CollectSelectionIssues(sel, today); len(issues) > 0 {
		if err := rt.EmitChunk(ctx, StepGenerateCropPlan, "validation_retry", map[string]any{"issues": issues}); err != nil {
			return nil, err
		}
		candidate, retryErr := RegenerateOnce(ctx, s.client, req, issues, sel)
		if retryErr != nil {
			s.logger.Warn("Validation retry failed, keeping original output",
				"workflow_id", rt.ID(),
				"error", retryErr)
		} else {
			sel = candidate
		}
		if remaining := CollectSelectionIssues(sel, today); len(remaining) > 0 && s.policy.Strict {
			return nil, apperr.Unprocessable("The generated crop plan failed validation. Please try again.")
		}
	}

	// The plan must cover every member crop before anything is persisted.
	crops := target.crops()
	expected := len(crops)
	if len(sel.CultivationCalendar) < expected || len(sel.InvestmentBreakdown) < expected {
		return nil, apperr.Internal(fmt.Errorf(
			"crop plan incomplete: %d calendars and %d breakdowns for %d crops",
			len(sel.CultivationCalendar), len(sel.InvestmentBreakdown), expected))
	}
	sel.CultivationCalendar = sel.CultivationCalendar[:expected]
	sel.InvestmentBreakdown = sel.InvestmentBreakdown[:expected]
	if err := rt.CompleteStep(ctx, StepGenerateCropPlan, map[string]any{"crops": expected}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepPersistSelection, nil); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, sel, target, crops, farmID, selectedCropID); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepPersistSelection, nil); err != nil {
		return nil, err
	}

	if err := rt.EmitResult(ctx, map[string]any{"selected_crop_id": selectedCropID, "crops": expected}); err != nil {
		return nil, err
	}
	return sel, rt.Complete(ctx, nil)
}

// findSelectedCrop resolves the picked entry inside the recommendation.
func (s *Selector) findSelectedCrop(ctx context.Context, recommendationID, selectedCropID string) (*selectedCrop, error) {
	rec, err := s.store.GetRecommendation(ctx, recommendationID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Crop recommendation not found.")
		}
		return nil, err
	}
	for i := range rec.MonoCrops {
		if rec.MonoCrops[i].ID == selectedCropID {
			return &selectedCrop{mono: &rec.MonoCrops[i]}, nil
		}
	}
	for g := range rec.InterCrops {
		if rec.InterCrops[g].ID == selectedCropID {
			return &selectedCrop{group: &rec.InterCrops[g]}, nil
		}
	}
	return nil, apperr.NotFound("Selected crop not found in the recommendation.")
}

// payload returns the model-input representation of the selection target.
func (s *selectedCrop) payload() any {
	if s.mono != nil {
		return s.mono
	}
	return s.group
}

// persist writes the calendar, breakdown and cultivating-crop record for
// every member crop, plus the shared records. Per-crop writes are
// independent; within one crop the sequence is fixed.
func (s *Selector) persist(ctx context.Context, sel *Selection, target *selectedCrop, crops []MonoCrop, farmID, selectedCropID string) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := range crops {
		crop := crops[i]
		cal := &sel.CultivationCalendar[i]
		inv := &sel.InvestmentBreakdown[i]

		cropID := crop.ID
		if target.mono != nil {
			cropID = selectedCropID
		}
		intercroppingID := ""
		if target.group != nil {
			intercroppingID = target.group.ID
		}

		group.Go(func() error {
			if cal.ID == "" {
				cal.ID = newID()
			}
			cal.CropID = cropID
			if err := s.store.SaveCalendar(groupCtx, cal); err != nil {
				return err
			}

			if inv.ID == "" {
				inv.ID = newID()
			}
			inv.CropID = cropID
			if err := s.store.SaveInvestment(groupCtx, inv); err != nil {
				return err
			}

			return s.store.SaveCultivatingCrop(groupCtx, &CultivatingCrop{
				ID:              cropID,
				FarmID:          farmID,
				Name:            crop.CropName,
				Variety:         crop.Variety,
				ImageURL:        crop.ImageURL,
				CropState:       CropSelected,
				Description:     crop.Description,
				IntercroppingID: intercroppingID,
			})
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	if target.group != nil {
		details := &IntercroppingDetails{
			ID:                  target.group.ID,
			FarmID:              farmID,
			IntercropType:       target.group.IntercropType,
			NoOfCrops:           target.group.NoOfCrops,
			Arrangement:         target.group.Arrangement,
			SpecificArrangement: target.group.SpecificArrangement,
			Benefits:            target.group.Benefits,
		}
		if err := s.store.SaveIntercroppingDetails(ctx, details); err != nil {
			return err
		}
	}

	sel.SoilHealth.CropID = selectedCropID
	if sel.SoilHealth.ID == "" {
		sel.SoilHealth.ID = newID()
	}
	return s.store.SaveSoilHealth(ctx, &sel.SoilHealth)
}
