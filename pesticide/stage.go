package pesticide

import (
	"context"
	"time"

	"github.com/agromitra/agromitra/apperr"
)

// UpdateStage moves one pesticide entry through its lifecycle. applied_date
// is required when the stage becomes applied and is cleared for every other
// stage.
func UpdateStage(ctx context.Context, store RecommendationStore, recommendationID, pesticideID string, stage Stage, appliedDate *time.Time) error {
	switch stage {
	case StageRecommended, StageSelected, StageApplied:
	default:
		return apperr.BadRequest("Invalid pesticide stage.")
	}

	if stage != StageApplied {
		appliedDate = nil
	}
	if stage == StageApplied && appliedDate == nil {
		return apperr.BadRequest("Applied date must be provided when stage is 'applied'")
	}

	rec, err := store.GetPesticideRecommendation(ctx, recommendationID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Pesticide recommendation not found.")
		}
		return err
	}

	updated := false
	for i := range rec.Recommendations {
		if rec.Recommendations[i].ID == pesticideID {
			rec.Recommendations[i].Stage = stage
			rec.Recommendations[i].AppliedDate = appliedDate
			updated = true
			break
		}
	}
	if !updated {
		return apperr.NotFound("Pesticide not found in the recommendation.")
	}

	return store.SavePesticideRecommendation(ctx, rec)
}
