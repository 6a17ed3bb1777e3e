package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
)

// coords parses the mandatory lat/lon query parameters.
func coords(c echo.Context) (float64, float64, error) {
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return 0, 0, apperr.BadRequest("lat must be a number.")
	}
	lon, err := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err != nil {
		return 0, 0, apperr.BadRequest("lon must be a number.")
	}
	return lat, lon, nil
}

func (s *Server) handleCurrentWeather(c echo.Context) error {
	lat, lon, err := coords(c)
	if err != nil {
		return err
	}
	current, err := s.weather.Current(c.Request().Context(), lat, lon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, current)
}

func (s *Server) handleWeatherForecast(c echo.Context) error {
	lat, lon, err := coords(c)
	if err != nil {
		return err
	}
	forecast, err := s.weather.FiveDayForecast(c.Request().Context(), lat, lon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, forecast)
}

func (s *Server) handleAirPollution(c echo.Context) error {
	lat, lon, err := coords(c)
	if err != nil {
		return err
	}
	pollution, err := s.weather.AirPollution(c.Request().Context(), lat, lon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pollution)
}

func (s *Server) handleReverseGeocoding(c echo.Context) error {
	lat, lon, err := coords(c)
	if err != nil {
		return err
	}
	places, err := s.weather.ReverseGeocode(c.Request().Context(), lat, lon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, places)
}

func (s *Server) handleWeatherMapURLs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.weather.MapURLs())
}
