package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CropImage maps an English crop name to a hosted image URL, seeded by
// admins and resolved onto recommendations before delivery.
type CropImage struct {
	ID        string    `json:"id"`
	CropName  string    `json:"crop_name"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveCropImage upserts a crop image record.
func (s *Store) SaveCropImage(ctx context.Context, img *CropImage) error {
	return putJSON(ctx, s.cropImages, img.ID, img)
}

// GetCropImageByName returns the image for an English crop name,
// case-insensitive. ErrNotFound when no image is seeded for the crop.
func (s *Store) GetCropImageByName(ctx context.Context, cropName string) (*CropImage, error) {
	want := strings.ToLower(strings.TrimSpace(cropName))
	if want == "" {
		return nil, ErrNotFound
	}

	keys, err := keysWithPrefix(ctx, s.cropImages, "")
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		entry, err := s.cropImages.Get(ctx, key)
		if err != nil {
			continue
		}
		var img CropImage
		if err := json.Unmarshal(entry.Value(), &img); err != nil {
			continue
		}
		if strings.ToLower(strings.TrimSpace(img.CropName)) == want {
			return &img, nil
		}
	}
	return nil, ErrNotFound
}

// CropImageURL resolves an English crop name to its seeded image URL.
// An unseeded crop yields an empty URL with no error.
func (s *Store) CropImageURL(ctx context.Context, englishName string) (string, error) {
	img, err := s.GetCropImageByName(ctx, englishName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return img.ImageURL, nil
}
