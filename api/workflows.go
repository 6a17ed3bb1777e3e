package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
)

func (s *Server) handleGetWorkflowRun(c echo.Context) error {
	run, err := s.store.GetRun(c.Request().Context(), c.Param("workflow_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Workflow run not found.")
		}
		return err
	}

	// Runs are user-scoped; only the owner and admins can audit them.
	claims := claimsFrom(c)
	if run.UserID != claims.UserID() && !claims.IsAdmin() {
		return apperr.Forbidden("User does not have access to this workflow run")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleListWorkflowEvents(c echo.Context) error {
	run, err := s.store.GetRun(c.Request().Context(), c.Param("workflow_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("Workflow run not found.")
		}
		return err
	}
	claims := claimsFrom(c)
	if run.UserID != claims.UserID() && !claims.IsAdmin() {
		return apperr.Forbidden("User does not have access to this workflow run")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return apperr.BadRequest("limit must be a positive number.")
		}
		limit = parsed
	}

	events, err := s.store.ListEvents(c.Request().Context(), run.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}
