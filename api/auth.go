package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
)

type sendOTPRequest struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (s *Server) handleSendOTP(c echo.Context) error {
	var req sendOTPRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	if req.Phone == "" {
		return apperr.BadRequest("Phone number is required.")
	}

	message, err := s.auth.SendOTP(c.Request().Context(), req.Phone, req.Name, req.Language)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleVerifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}

	token, user, err := s.auth.VerifyOTP(c.Request().Context(), req.Phone, req.OTP)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (s *Server) handleCurrentUser(c echo.Context) error {
	user, err := s.auth.CurrentUser(c.Request().Context(), claimsFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleDeleteAccount(c echo.Context) error {
	if err := s.auth.DeleteAccount(c.Request().Context(), claimsFrom(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
