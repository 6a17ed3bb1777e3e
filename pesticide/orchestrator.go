package pesticide

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agromitra/agromitra/agronomy"
	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/farm"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/model"
	"github.com/agromitra/agromitra/workflow"
)

// ActionPesticideRecommendation is the business action name for the
// diagnosis workflow.
const ActionPesticideRecommendation = "pesticide_recommendation"

// Step names of the pesticide workflow, in execution order.
const (
	StepLoadContext       = "load_crop_and_farm_context"
	StepPrepareInputMedia = "prepare_input_media"
	StepGenerate          = "generate_pesticide_recommendation"
	StepPersistComponents = "persist_recommendation_components"
	StepSaveFinal         = "save_final_recommendation"
)

const systemPrompt = `You are Kisan Seva AI, a plant pathologist diagnosing
pest and disease problems for small Indian farmers. Return strict JSON in the
target envelope schema only.

You are given the farm profile, the affected crop, the farmer's description
and, when available, photos of the affected plants.

- When you can identify the problem, set result_type to "success" and fill the
  success payload: disease_details, ranked pesticide recommendations (chemical,
  organic or biological) with dosage, application method, precautions and a
  plain-language explanation, plus general_advice.
- When the input is not enough to diagnose, set result_type to "error" and fill
  the error payload: the reason, and concrete suggestions for better input
  (clearer photos, affected part close-ups, more description).
- Never populate both payloads.
- Translate farmer-facing text into the requested language, keeping JSON keys
  in English.`

// ContextStore loads the entities the diagnosis runs against.
type ContextStore interface {
	GetCultivatingCrop(ctx context.Context, id string) (*agronomy.CultivatingCrop, error)
	GetFarmProfile(ctx context.Context, id string) (*farm.Profile, error)
}

// RecommendationStore persists diagnosis results and their components.
type RecommendationStore interface {
	SavePesticideRecommendation(ctx context.Context, rec *Recommendation) error
	GetPesticideRecommendation(ctx context.Context, id string) (*Recommendation, error)
	SavePesticideComponent(ctx context.Context, c *Component) error
	DeletePesticideComponents(ctx context.Context, recommendationID string) error
}

// BlobReader downloads user-uploaded files by reference.
type BlobReader interface {
	Get(ctx context.Context, reference string) ([]byte, string, error)
}

// ModelClient is the slice of the model client the orchestrator uses: one
// structured call plus the media file API for photo input.
type ModelClient interface {
	CompleteStructured(ctx context.Context, req llm.Request, out any) (*llm.Response, error)
	UploadMedia(ctx context.Context, capability string, data []byte, mimeType, displayName string) (*llm.FileData, error)
	DeleteMedia(ctx context.Context, capability, name string) error
}

// Recommender runs the pesticide recommendation workflow.
type Recommender struct {
	store   RecommendationStore
	context ContextStore
	blobs   BlobReader
	client  ModelClient
	runs    workflow.RunStore
	events  workflow.EventStore
	logger  *slog.Logger
	now     func() time.Time
}

// RecommenderOption configures a Recommender.
type RecommenderOption func(*Recommender)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RecommenderOption {
	return func(r *Recommender) { r.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RecommenderOption {
	return func(r *Recommender) { r.now = now }
}

// NewRecommender creates the orchestrator.
func NewRecommender(store RecommendationStore, contextStore ContextStore, blobs BlobReader, client ModelClient, runs workflow.RunStore, events workflow.EventStore, opts ...RecommenderOption) *Recommender {
	r := &Recommender{
		store:   store,
		context: contextStore,
		blobs:   blobs,
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

// Recommend diagnoses a pest or disease problem for a cultivating crop. The
// returned envelope carries either a persisted recommendation or the model's
// diagnostic error asking for better input.
func (r *Recommender) Recommend(ctx context.Context, cropID, farmID, description, language string, files []string, corr workflow.Correlation, emitter workflow.Emitter) (*Envelope, error) {
	corr.FarmID = farmID
	corr.CropID = cropID
	rt := workflow.NewRuntime(ActionPesticideRecommendation, workflow.TypePesticideRecommendation, r.runs, r.events, corr,
		map[string]any{"language": language},
		workflow.WithEmitter(emitter), workflow.WithLogger(r.logger))

	if err := rt.Start(ctx); err != nil {
		return nil, apperr.Internal(err)
	}

	env, err := r.run(ctx, rt, cropID, farmID, description, language, files)
	if err != nil {
		appErr := apperr.From(err)
		if appErr.Kind == apperr.KindInternal {
			r.logger.Error("Pesticide recommendation workflow failed",
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
		return nil, appErr
	}
	return env, nil
}

func (r *Recommender) run(ctx context.Context, rt *workflow.Runtime, cropID, farmID, description, language string, files []string) (*Envelope, error) {
	if err := rt.StartStep(ctx, StepLoadContext, nil); err != nil {
		return nil, err
	}

	var (
		crop    *agronomy.CultivatingCrop
		profile *farm.Profile
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		c, err := r.context.GetCultivatingCrop(groupCtx, cropID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.NotFound(fmt.Sprintf("Cultivating crop with id %s not found.", cropID))
			}
			return err
		}
		crop = c
		return nil
	})
	group.Go(func() error {
		p, err := r.context.GetFarmProfile(groupCtx, farmID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.NotFound("Farm profile not found.")
			}
			return err
		}
		profile = p
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepLoadContext, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepPrepareInputMedia, nil); err != nil {
		return nil, err
	}
	media, err := r.uploadInputMedia(ctx, files)
	// The uploads are transient provider files; delete them once
	// generation is over regardless of outcome.
	defer r.cleanupMedia(media)
	if err != nil {
		return nil, err
	}
	if err := rt.EmitChunk(ctx, StepPrepareInputMedia, "media_ready", map[string]any{"file_count": len(media)}); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepPrepareInputMedia, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepGenerate, nil); err != nil {
		return nil, err
	}
	input := map[string]any{
		"farm_profile":                profile,
		"crop_name":                   crop.Name,
		"pest_or_disease_description": description,
		"language":                    language,
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	parts := []llm.Part{{Text: string(payload)}}
	for i := range media {
		parts = append(parts, llm.Part{FileData: media[i]})
	}
	req := llm.Request{
		Capability:   model.CapabilityDiagnosis.String(),
		System:       systemPrompt,
		Contents:     []llm.Content{{Role: "user", Parts: parts}},
		JSONResponse: true,
	}

	env := &Envelope{}
	if _, err := r.client.CompleteStructured(ctx, req, env); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable,
			"The AI service is currently unavailable. Please try again later.", err)
	}
	if err := env.Normalize(); err != nil {
		return nil, apperr.Internal(err)
	}

	if env.ResultType == ResultError {
		if err := rt.CompleteStep(ctx, StepGenerate, map[string]any{"result_type": string(ResultError)}); err != nil {
			return nil, err
		}
		if err := rt.EmitResult(ctx, map[string]any{"error": env.Error}); err != nil {
			return nil, err
		}
		return env, rt.Complete(ctx, map[string]any{"result_type": string(ResultError)})
	}

	rec := env.Success
	if len(rec.Recommendations) == 0 {
		return nil, apperr.Unprocessable(
			"No pesticide could be recommended from the provided input. Please add clearer photos or more detail.")
	}
	rec.AssignIDs()
	rec.CropID = cropID
	rec.FarmID = farmID
	rec.Timestamp = r.now().UTC()
	if err := rt.CompleteStep(ctx, StepGenerate, map[string]any{"recommendation_count": len(rec.Recommendations)}); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepPersistComponents, nil); err != nil {
		return nil, err
	}
	if err := r.store.DeletePesticideComponents(ctx, rec.ID); err != nil {
		return nil, err
	}
	components := BuildComponents(rec)
	for i := range components {
		if err := r.store.SavePesticideComponent(ctx, &components[i]); err != nil {
			return nil, err
		}
		if err := rt.EmitChunk(ctx, StepPersistComponents, componentChunkType(&components[i]), componentChunkData(&components[i])); err != nil {
			return nil, err
		}
	}
	if err := rt.CompleteStep(ctx, StepPersistComponents, nil); err != nil {
		return nil, err
	}

	if err := rt.StartStep(ctx, StepSaveFinal, nil); err != nil {
		return nil, err
	}
	if err := r.store.SavePesticideRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	if err := rt.CompleteStep(ctx, StepSaveFinal, map[string]any{"recommendation_id": rec.ID}); err != nil {
		return nil, err
	}

	if err := rt.EmitResult(ctx, map[string]any{"recommendation_id": rec.ID}); err != nil {
		return nil, err
	}
	return env, rt.Complete(ctx, map[string]any{"recommendation_id": rec.ID})
}

// uploadInputMedia downloads each blob reference and uploads it to the
// provider's file API so the diagnosis call can reference it.
func (r *Recommender) uploadInputMedia(ctx context.Context, files []string) ([]*llm.FileData, error) {
	media := make([]*llm.FileData, 0, len(files))
	for _, reference := range files {
		data, mimeType, err := r.blobs.Get(ctx, reference)
		if err != nil {
			return media, err
		}
		fd, err := r.client.UploadMedia(ctx, model.CapabilityDiagnosis.String(), data, mimeType, reference)
		if err != nil {
			return media, apperr.Wrap(apperr.KindUnavailable,
				"Could not prepare the uploaded files for diagnosis. Please try again later.", err)
		}
		media = append(media, fd)
	}
	return media, nil
}

// cleanupMedia best-effort deletes the transient provider files.
func (r *Recommender) cleanupMedia(media []*llm.FileData) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, fd := range media {
		if fd == nil || fd.Name == "" {
			continue
		}
		if err := r.client.DeleteMedia(ctx, model.CapabilityDiagnosis.String(), fd.Name); err != nil {
			r.logger.Debug("Transient media cleanup failed",
				"file", fd.Name,
				"error", err)
		}
	}
}

func componentChunkType(c *Component) string {
	if c.Type == ComponentDiagnostic {
		return "diagnostic_ready"
	}
	return "pesticide_item_ready"
}

func componentChunkData(c *Component) map[string]any {
	if c.Type == ComponentDiagnostic {
		return map[string]any{
			"disease_details": c.Diagnostic.DiseaseDetails,
			"general_advice":  c.Diagnostic.GeneralAdvice,
		}
	}
	return map[string]any{
		"pesticide_id":   c.Item.ID,
		"pesticide_name": c.Item.PesticideName,
		"pesticide_type": string(c.Item.PesticideType),
		"rank":           c.Item.Rank,
	}
}
