package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/farm"
)

func (s *Server) handleSaveFarmProfile(c echo.Context) error {
	var profile farm.Profile
	if err := c.Bind(&profile); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	if profile.ID == "" {
		profile.ID = farm.NewID()
	}
	if profile.FarmerID == "" {
		profile.FarmerID = claimsFrom(c).UserID()
	}

	if err := s.store.SaveFarmProfile(c.Request().Context(), &profile); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &profile)
}

func (s *Server) handleListFarmProfiles(c echo.Context) error {
	profiles, err := s.store.ListFarmProfilesByUser(c.Request().Context(), claimsFrom(c).UserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profiles)
}

func (s *Server) handleGetFarmProfile(c echo.Context) error {
	farmID := c.Param("farm_id")
	profile, err := s.store.GetFarmProfile(c.Request().Context(), farmID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound(fmt.Sprintf("Farm profile with ID '%s' not found.", farmID))
		}
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleDeleteFarmProfile(c echo.Context) error {
	if err := s.store.DeleteFarmProfile(c.Request().Context(), c.Param("farm_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}
