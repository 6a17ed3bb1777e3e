package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agromitra/agromitra/pesticide"
)

// SavePesticideRecommendation upserts a pesticide recommendation.
func (s *Store) SavePesticideRecommendation(ctx context.Context, rec *pesticide.Recommendation) error {
	return putJSON(ctx, s.pesticides, rec.ID, rec)
}

// GetPesticideRecommendation retrieves a pesticide recommendation by id.
func (s *Store) GetPesticideRecommendation(ctx context.Context, id string) (*pesticide.Recommendation, error) {
	var rec pesticide.Recommendation
	if err := getJSON(ctx, s.pesticides, id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListPesticideRecommendationsByCrop returns all pesticide recommendations
// for a crop, most recent first.
func (s *Store) ListPesticideRecommendationsByCrop(ctx context.Context, cropID string) ([]*pesticide.Recommendation, error) {
	keys, err := keysWithPrefix(ctx, s.pesticides, "")
	if err != nil {
		return nil, err
	}

	recs := make([]*pesticide.Recommendation, 0)
	for _, key := range keys {
		entry, err := s.pesticides.Get(ctx, key)
		if err != nil {
			continue
		}
		var rec pesticide.Recommendation
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			continue
		}
		if rec.CropID == cropID {
			recs = append(recs, &rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Timestamp.After(recs[j].Timestamp) })
	return recs, nil
}

// DeletePesticideRecommendation removes a recommendation and purges its
// components.
func (s *Store) DeletePesticideRecommendation(ctx context.Context, id string) error {
	if err := s.DeletePesticideComponents(ctx, id); err != nil {
		return err
	}
	if err := s.pesticides.Delete(ctx, id); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// DeletePesticideRecommendationsByCrop removes every recommendation of a
// crop, components included.
func (s *Store) DeletePesticideRecommendationsByCrop(ctx context.Context, cropID string) error {
	recs, err := s.ListPesticideRecommendationsByCrop(ctx, cropID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := s.DeletePesticideRecommendation(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// SavePesticideComponent upserts a single pesticide component.
func (s *Store) SavePesticideComponent(ctx context.Context, c *pesticide.Component) error {
	return putJSON(ctx, s.pesticideParts, componentKey(c.RecommendationID, c.Order), c)
}

// ListPesticideComponents returns all components of a pesticide
// recommendation sorted by order.
func (s *Store) ListPesticideComponents(ctx context.Context, recommendationID string) ([]pesticide.Component, error) {
	keys, err := keysWithPrefix(ctx, s.pesticideParts, recommendationID+".")
	if err != nil {
		return nil, err
	}

	components := make([]pesticide.Component, 0, len(keys))
	for _, key := range keys {
		entry, err := s.pesticideParts.Get(ctx, key)
		if err != nil {
			continue
		}
		var c pesticide.Component
		if err := json.Unmarshal(entry.Value(), &c); err != nil {
			continue
		}
		components = append(components, c)
	}

	sort.Slice(components, func(i, j int) bool { return components[i].Order < components[j].Order })
	return components, nil
}

// DeletePesticideComponents purges every component of a pesticide
// recommendation.
func (s *Store) DeletePesticideComponents(ctx context.Context, recommendationID string) error {
	keys, err := keysWithPrefix(ctx, s.pesticideParts, recommendationID+".")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.pesticideParts.Delete(ctx, key); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete pesticide component %s: %w", key, err)
		}
	}
	return nil
}
