package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agromitra/agromitra/agronomy"
)

// componentKey builds a per-recommendation key that sorts in delivery
// order when listed by prefix.
func componentKey(recommendationID string, order int) string {
	return fmt.Sprintf("%s.%06d", recommendationID, order)
}

// SaveRecommendation upserts a crop recommendation.
func (s *Store) SaveRecommendation(ctx context.Context, rec *agronomy.Recommendation) error {
	return putJSON(ctx, s.recommendations, rec.ID, rec)
}

// GetRecommendation retrieves a crop recommendation by id.
func (s *Store) GetRecommendation(ctx context.Context, id string) (*agronomy.Recommendation, error) {
	var rec agronomy.Recommendation
	if err := getJSON(ctx, s.recommendations, id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetLatestRecommendationByFarm returns the most recently generated
// recommendation for a farm, or ErrNotFound.
func (s *Store) GetLatestRecommendationByFarm(ctx context.Context, farmID string) (*agronomy.Recommendation, error) {
	keys, err := keysWithPrefix(ctx, s.recommendations, "")
	if err != nil {
		return nil, err
	}

	var latest *agronomy.Recommendation
	for _, key := range keys {
		entry, err := s.recommendations.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec agronomy.Recommendation
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		if rec.FarmID != farmID {
			continue
		}
		if latest == nil || rec.Timestamp.After(latest.Timestamp) {
			r := rec
			latest = &r
		}
	}

	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// DeleteRecommendation removes a recommendation and purges its components.
func (s *Store) DeleteRecommendation(ctx context.Context, id string) error {
	if err := s.DeleteComponents(ctx, id); err != nil {
		return err
	}
	if err := s.recommendations.Delete(ctx, id); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// SaveComponent upserts a single recommendation component.
func (s *Store) SaveComponent(ctx context.Context, c *agronomy.Component) error {
	return putJSON(ctx, s.components, componentKey(c.RecommendationID, c.Order), c)
}

// ListComponents returns all components of a recommendation sorted by
// order.
func (s *Store) ListComponents(ctx context.Context, recommendationID string) ([]agronomy.Component, error) {
	keys, err := keysWithPrefix(ctx, s.components, recommendationID+".")
	if err != nil {
		return nil, err
	}

	components := make([]agronomy.Component, 0, len(keys))
	for _, key := range keys {
		entry, err := s.components.Get(ctx, key)
		if err != nil {
			continue
		}
		var c agronomy.Component
		if err := json.Unmarshal(entry.Value(), &c); err != nil {
			continue
		}
		components = append(components, c)
	}

	sort.Slice(components, func(i, j int) bool { return components[i].Order < components[j].Order })
	return components, nil
}

// DeleteComponents purges every component of a recommendation. Called
// before re-persisting so no stale fragments survive a regeneration.
func (s *Store) DeleteComponents(ctx context.Context, recommendationID string) error {
	keys, err := keysWithPrefix(ctx, s.components, recommendationID+".")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.components.Delete(ctx, key); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete component %s: %w", key, err)
		}
	}
	return nil
}

// SaveCultivatingCrop upserts a cultivating crop record.
func (s *Store) SaveCultivatingCrop(ctx context.Context, c *agronomy.CultivatingCrop) error {
	return putJSON(ctx, s.cultivatingCrops, c.ID, c)
}

// GetCultivatingCrop retrieves a cultivating crop by id.
func (s *Store) GetCultivatingCrop(ctx context.Context, id string) (*agronomy.CultivatingCrop, error) {
	var c agronomy.CultivatingCrop
	if err := getJSON(ctx, s.cultivatingCrops, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCultivatingCropsByFarm returns all cultivating crops for a farm.
func (s *Store) ListCultivatingCropsByFarm(ctx context.Context, farmID string) ([]*agronomy.CultivatingCrop, error) {
	keys, err := keysWithPrefix(ctx, s.cultivatingCrops, "")
	if err != nil {
		return nil, err
	}

	crops := make([]*agronomy.CultivatingCrop, 0)
	for _, key := range keys {
		entry, err := s.cultivatingCrops.Get(ctx, key)
		if err != nil {
			continue
		}
		var c agronomy.CultivatingCrop
		if err := json.Unmarshal(entry.Value(), &c); err != nil {
			continue
		}
		if c.FarmID == farmID {
			crops = append(crops, &c)
		}
	}
	return crops, nil
}

// DeleteCultivatingCrop removes a cultivating crop record. Deleting a
// missing crop is not an error.
func (s *Store) DeleteCultivatingCrop(ctx context.Context, id string) error {
	if err := s.cultivatingCrops.Delete(ctx, id); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// SaveCalendar upserts a cultivation calendar, keyed by crop so each crop
// has at most one.
func (s *Store) SaveCalendar(ctx context.Context, cal *agronomy.CultivationCalendar) error {
	return putJSON(ctx, s.calendars, cal.CropID, cal)
}

// GetCalendarByCrop retrieves the cultivation calendar for a crop.
func (s *Store) GetCalendarByCrop(ctx context.Context, cropID string) (*agronomy.CultivationCalendar, error) {
	var cal agronomy.CultivationCalendar
	if err := getJSON(ctx, s.calendars, cropID, &cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

// DeleteCalendarByCrop removes the cultivation calendar of a crop.
func (s *Store) DeleteCalendarByCrop(ctx context.Context, cropID string) error {
	if err := s.calendars.Delete(ctx, cropID); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// SaveInvestment upserts an investment breakdown, keyed by crop.
func (s *Store) SaveInvestment(ctx context.Context, inv *agronomy.InvestmentBreakdown) error {
	return putJSON(ctx, s.investments, inv.CropID, inv)
}

// GetInvestmentByCrop retrieves the investment breakdown for a crop.
func (s *Store) GetInvestmentByCrop(ctx context.Context, cropID string) (*agronomy.InvestmentBreakdown, error) {
	var inv agronomy.InvestmentBreakdown
	if err := getJSON(ctx, s.investments, cropID, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// DeleteInvestmentByCrop removes the investment breakdown of a crop.
func (s *Store) DeleteInvestmentByCrop(ctx context.Context, cropID string) error {
	if err := s.investments.Delete(ctx, cropID); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// SaveSoilHealth upserts a soil health plan, keyed by crop.
func (s *Store) SaveSoilHealth(ctx context.Context, sh *agronomy.SoilHealth) error {
	return putJSON(ctx, s.soilHealth, sh.CropID, sh)
}

// GetSoilHealthByCrop retrieves the soil health plan for a crop.
func (s *Store) GetSoilHealthByCrop(ctx context.Context, cropID string) (*agronomy.SoilHealth, error) {
	var sh agronomy.SoilHealth
	if err := getJSON(ctx, s.soilHealth, cropID, &sh); err != nil {
		return nil, err
	}
	return &sh, nil
}

// DeleteSoilHealthByCrop removes the soil health plan of a crop.
func (s *Store) DeleteSoilHealthByCrop(ctx context.Context, cropID string) error {
	if err := s.soilHealth.Delete(ctx, cropID); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// SaveIntercroppingDetails upserts the shared layout record of a selected
// intercropping system.
func (s *Store) SaveIntercroppingDetails(ctx context.Context, d *agronomy.IntercroppingDetails) error {
	return putJSON(ctx, s.intercropping, d.ID, d)
}

// GetIntercroppingDetails retrieves intercropping details by id.
func (s *Store) GetIntercroppingDetails(ctx context.Context, id string) (*agronomy.IntercroppingDetails, error) {
	var d agronomy.IntercroppingDetails
	if err := getJSON(ctx, s.intercropping, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
