package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/agromitra/agromitra/apperr"
)

func (s *Server) handleGetRecommendationByFarm(c echo.Context) error {
	farmID := c.Param("farm_id")
	rec, err := s.store.GetLatestRecommendationByFarm(c.Request().Context(), farmID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound(fmt.Sprintf("No crop recommendation found for farm %s.", farmID))
		}
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleGetRecommendation(c echo.Context) error {
	rec, err := s.store.GetRecommendation(c.Request().Context(), c.Param("recommendation_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Crop recommendation not found.")
		}
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleListRecommendationComponents(c echo.Context) error {
	components, err := s.store.ListComponents(c.Request().Context(), c.Param("recommendation_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, components)
}

func (s *Server) handleListCultivatingCrops(c echo.Context) error {
	crops, err := s.store.ListCultivatingCropsByFarm(c.Request().Context(), c.Param("farm_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, crops)
}

func (s *Server) handleGetCultivatingCrop(c echo.Context) error {
	cropID := c.Param("crop_id")
	crop, err := s.store.GetCultivatingCrop(c.Request().Context(), cropID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound(fmt.Sprintf("Cultivating crop with id %s not found.", cropID))
		}
		return err
	}
	return c.JSON(http.StatusOK, crop)
}

// handleDeleteCultivatingCrop removes a crop and everything derived from
// it: its calendar, investment breakdown, soil health plan and pesticide
// recommendations.
func (s *Server) handleDeleteCultivatingCrop(c echo.Context) error {
	ctx := c.Request().Context()
	cropID := c.Param("crop_id")

	if _, err := s.store.GetCultivatingCrop(ctx, cropID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound(fmt.Sprintf("Cultivating crop with id %s not found.", cropID))
		}
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return s.store.DeleteCalendarByCrop(groupCtx, cropID) })
	group.Go(func() error { return s.store.DeleteInvestmentByCrop(groupCtx, cropID) })
	group.Go(func() error { return s.store.DeleteSoilHealthByCrop(groupCtx, cropID) })
	group.Go(func() error { return s.store.DeletePesticideRecommendationsByCrop(groupCtx, cropID) })
	if err := group.Wait(); err != nil {
		return err
	}

	if err := s.store.DeleteCultivatingCrop(ctx, cropID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetIntercroppingDetails(c echo.Context) error {
	detailsID := c.Param("details_id")
	details, err := s.store.GetIntercroppingDetails(c.Request().Context(), detailsID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound(fmt.Sprintf("Intercropping details with id %s not found.", detailsID))
		}
		return err
	}
	return c.JSON(http.StatusOK, details)
}

func (s *Server) handleGetCalendar(c echo.Context) error {
	cal, err := s.store.GetCalendarByCrop(c.Request().Context(), c.Param("crop_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Cultivation calendar not found for the crop.")
		}
		return err
	}
	return c.JSON(http.StatusOK, cal)
}

func (s *Server) handleDeleteCalendar(c echo.Context) error {
	if err := s.store.DeleteCalendarByCrop(c.Request().Context(), c.Param("crop_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetInvestment(c echo.Context) error {
	inv, err := s.store.GetInvestmentByCrop(c.Request().Context(), c.Param("crop_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Investment breakdown not found for the crop.")
		}
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (s *Server) handleDeleteInvestment(c echo.Context) error {
	if err := s.store.DeleteInvestmentByCrop(c.Request().Context(), c.Param("crop_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetSoilHealth(c echo.Context) error {
	sh, err := s.store.GetSoilHealthByCrop(c.Request().Context(), c.Param("crop_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Soil health recommendations not found for the crop.")
		}
		return err
	}
	return c.JSON(http.StatusOK, sh)
}

func (s *Server) handleDeleteSoilHealth(c echo.Context) error {
	if err := s.store.DeleteSoilHealthByCrop(c.Request().Context(), c.Param("crop_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
