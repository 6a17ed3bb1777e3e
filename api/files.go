package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/chat"
)

// maxUploadSize bounds a single file upload.
const maxUploadSize = 25 * 1024 * 1024

func (s *Server) handleUploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperr.BadRequest("file is required.")
	}
	if fileHeader.Size > maxUploadSize {
		return apperr.BadRequest("File is too large.")
	}

	container := c.FormValue("file_type")
	if container == blob.ContainerSystemData {
		return apperr.Forbidden("Crop image uploads are allowed only for admin endpoints.")
	}
	blobName := strings.TrimSpace(c.FormValue("blob_name"))
	if blobName == "" {
		return apperr.BadRequest("blob_name cannot be empty.")
	}

	pathPrefix, err := blob.UserScopedPath(claimsFrom(c).UserID(), c.FormValue("path_prefix"))
	if err != nil {
		return err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperr.Internal(err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		return apperr.Internal(err)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	reference := container + "/" + pathPrefix + "/" + blobName
	if _, err := s.blobs.Put(c.Request().Context(), reference, data, mimeType); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"url": reference})
}

type deleteFileRequest struct {
	URL      string `json:"url"`
	FileType string `json:"file_type"`
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	var req deleteFileRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	if req.FileType == blob.ContainerSystemData {
		return apperr.Forbidden("Deletion of system data files is not allowed.")
	}

	reference, err := blob.Normalize(req.URL)
	if err != nil {
		return err
	}
	if req.FileType != "" && !strings.HasPrefix(reference, req.FileType+"/") {
		return apperr.BadRequest("Container mismatch.")
	}

	if err := s.blobs.Delete(c.Request().Context(), reference); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDownloadFile(c echo.Context) error {
	reference := c.Param("*")
	data, mimeType, err := s.blobs.Get(c.Request().Context(), reference)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, mimeType, data)
}

type textToSpeechRequest struct {
	Text       string `json:"text"`
	BlobName   string `json:"blob_name"`
	PathPrefix string `json:"path_prefix"`
	Modulation string `json:"modulation"`
	VoiceName  string `json:"voice_name"`
}

func (s *Server) handleTextToSpeech(c echo.Context) error {
	var req textToSpeechRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	if strings.TrimSpace(req.Text) == "" {
		return apperr.BadRequest("text is required.")
	}

	claims := claimsFrom(c)
	pathPrefix, err := blob.UserScopedPath(claims.UserID(), req.PathPrefix)
	if err != nil {
		return err
	}

	modulation := chat.Modulation(req.Modulation)
	if req.Modulation == "" {
		modulation = chat.ModulationGeneral
	}

	reference, err := s.agent.Speech().SynthesizeToBlob(c.Request().Context(), chat.SpeechRequest{
		Container:  blob.ContainerUserContent,
		Text:       req.Text,
		Language:   claims.Language,
		Modulation: modulation,
		BlobName:   req.BlobName,
		PathPrefix: pathPrefix,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"url": reference})
}
