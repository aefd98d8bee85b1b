package server

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/llm"
)

// handleCreateSession starts a session from the manager's current defaults,
// configured credential included, with an optional settings body applied on top.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req SettingsRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
		}
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	settings := req.apply(s.sessions.Defaults())

	session := s.sessions.Create(settings)
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(session))
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	session, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return sessionNotFound(c)
	}
	return c.JSON(sessionResponse(session))
}

func (s *Server) handleEndSession(c *fiber.Ctx) error {
	if err := s.sessions.End(c.Params("id")); err != nil {
		return sessionNotFound(c)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	session, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return sessionNotFound(c)
	}

	var req SettingsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	session.SetSettings(req.apply(session.Settings()))
	return c.JSON(sessionResponse(session))
}

// handleSubmit appends a user turn and returns the assistant turn. Adapter
// failures are not HTTP errors: the diagnostic is the assistant turn.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	session, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return sessionNotFound(c)
	}

	var req MessageRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		s.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	settings := req.apply(session.Settings())
	if key := bearerToken(c.Get(fiber.HeaderAuthorization)); key != "" {
		settings.Credential = key
	}

	reply, err := session.SubmitWith(c.UserContext(), req.Content, settings)
	switch {
	case errors.Is(err, chat.ErrEmptySubmission):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "content is required"})
	case errors.Is(err, chat.ErrSessionBusy):
		return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: "session is awaiting a response"})
	case err != nil:
		s.logger.Error("submission failed", zap.String("session_id", session.ID()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(replyResponse(reply))
}

func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	session, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return sessionNotFound(c)
	}
	session.ClearHistory()
	return c.SendStatus(fiber.StatusNoContent)
}

func sessionNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: chat.ErrSessionNotFound.Error()})
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
