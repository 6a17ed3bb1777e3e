package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/chat"
)

type createChatRequest struct {
	ChatType chat.Type `json:"chat_type"`
	DataID   string    `json:"data_id"`
}

func (s *Server) handleCreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	if req.ChatType == "" {
		req.ChatType = chat.TypeGeneral
	}

	session := chat.NewSession(claimsFrom(c).UserID(), req.ChatType)
	session.DataID = req.DataID
	if err := s.store.SaveChatSession(c.Request().Context(), session); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) handleListChats(c echo.Context) error {
	sessions, err := s.store.ListChatSessionsByUser(c.Request().Context(), claimsFrom(c).UserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessions)
}

// ownedChatSession loads a session and rejects access by anyone but its
// owner.
func (s *Server) ownedChatSession(c echo.Context) (*chat.Session, error) {
	session, err := s.store.GetChatSession(c.Request().Context(), c.Param("chat_id"))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Chat session not found.")
		}
		return nil, err
	}
	if session.UserID != claimsFrom(c).UserID() {
		return nil, apperr.Forbidden("User does not have access to this chat session")
	}
	return session, nil
}

func (s *Server) handleGetChat(c echo.Context) error {
	session, err := s.ownedChatSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) handleListChatMessages(c echo.Context) error {
	if _, err := s.ownedChatSession(c); err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return apperr.BadRequest("limit must be between 1 and 100.")
		}
		limit = parsed
	}

	messages, err := s.store.ListChatMessages(c.Request().Context(), c.Param("chat_id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *Server) handleDeleteChat(c echo.Context) error {
	if _, err := s.ownedChatSession(c); err != nil {
		return err
	}
	if err := s.store.DeleteChatSession(c.Request().Context(), c.Param("chat_id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
