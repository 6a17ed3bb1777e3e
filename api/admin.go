package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/storage"
)

// handleSeedCropImages uploads reference crop images and indexes them by
// English crop name, so recommendations can resolve image URLs. Form fields
// are parallel: files[i] is the image for crop_names[i].
func (s *Server) handleSeedCropImages(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.BadRequest("Invalid multipart form.")
	}
	files := form.File["files"]
	names := form.Value["crop_names"]
	if len(files) == 0 || len(files) != len(names) {
		return apperr.BadRequest("files and crop_names must be provided in equal numbers.")
	}

	ctx := c.Request().Context()
	references := make([]string, 0, len(files))
	for i, fileHeader := range files {
		name := strings.TrimSpace(names[i])
		if name == "" {
			return apperr.BadRequest("crop_names entries cannot be empty.")
		}

		src, err := fileHeader.Open()
		if err != nil {
			return apperr.Internal(err)
		}
		data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
		src.Close()
		if err != nil {
			return apperr.Internal(err)
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "image/jpeg"
		}

		reference := blob.ContainerSystemData + "/crops/" + strings.ReplaceAll(strings.ToLower(name), " ", "-")
		if _, err := s.blobs.Put(ctx, reference, data, mimeType); err != nil {
			return err
		}

		img := &storage.CropImage{
			ID:        strings.ReplaceAll(uuid.New().String(), "-", ""),
			CropName:  name,
			ImageURL:  reference,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.SaveCropImage(ctx, img); err != nil {
			return err
		}
		references = append(references, reference)
	}

	return c.JSON(http.StatusCreated, map[string]any{"references": references})
}

func (s *Server) handleGetCropImage(c echo.Context) error {
	name := c.QueryParam("crop_name")
	img, err := s.store.GetCropImageByName(c.Request().Context(), name)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("No image found for the crop.")
		}
		return err
	}
	return c.JSON(http.StatusOK, img)
}
