package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/pesticide"
)

func (s *Server) handleGetPesticideRecommendation(c echo.Context) error {
	rec, err := s.store.GetPesticideRecommendation(c.Request().Context(), c.Param("recommendation_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Pesticide recommendation not found.")
		}
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListPesticideRecommendations(c echo.Context) error {
	recs, err := s.store.ListPesticideRecommendationsByCrop(c.Request().Context(), c.Param("crop_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) handleDeletePesticideRecommendation(c echo.Context) error {
	if err := s.store.DeletePesticideRecommendation(c.Request().Context(), c.Param("recommendation_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type stageUpdateRequest struct {
	PesticideID string     `json:"pesticide_id"`
	Stage       string     `json:"stage"`
	AppliedDate *time.Time `json:"applied_date"`
}

func (s *Server) handleUpdatePesticideStage(c echo.Context) error {
	var req stageUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}

	err := pesticide.UpdateStage(c.Request().Context(), s.store,
		c.Param("recommendation_id"), req.PesticideID, pesticide.Stage(req.Stage), req.AppliedDate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Pesticide stage updated successfully"})
}
