package storage

import (
	"context"
	"encoding/json"

	"github.com/agromitra/agromitra/farm"
)

// SaveFarmProfile upserts a farm profile.
func (s *Store) SaveFarmProfile(ctx context.Context, p *farm.Profile) error {
	return putJSON(ctx, s.farms, p.ID, p)
}

// GetFarmProfile retrieves a farm profile by id.
func (s *Store) GetFarmProfile(ctx context.Context, id string) (*farm.Profile, error) {
	var p farm.Profile
	if err := getJSON(ctx, s.farms, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListFarmProfilesByUser returns all farm profiles owned by a farmer.
func (s *Store) ListFarmProfilesByUser(ctx context.Context, farmerID string) ([]*farm.Profile, error) {
	keys, err := keysWithPrefix(ctx, s.farms, "")
	if err != nil {
		return nil, err
	}

	profiles := make([]*farm.Profile, 0)
	for _, key := range keys {
		entry, err := s.farms.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var p farm.Profile
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			continue
		}
		if p.FarmerID == farmerID {
			profiles = append(profiles, &p)
		}
	}
	return profiles, nil
}

// DeleteFarmProfile removes a farm profile.
func (s *Store) DeleteFarmProfile(ctx context.Context, id string) error {
	if err := s.farms.Delete(ctx, id); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
