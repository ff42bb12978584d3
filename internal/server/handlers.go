package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/classmind/recall/internal/jobs"
	"github.com/classmind/recall/internal/memory"
	"github.com/classmind/recall/internal/types"
)

const (
	actorIDHeader   = "X-Actor-ID"
	actorRoleHeader = "X-Actor-Role"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleSaveMemory(c *fiber.Ctx) error {
	var req types.SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	actor := memory.Actor{
		ID:   c.Get(actorIDHeader),
		Role: c.Get(actorRoleHeader),
	}

	result, err := s.dispatcher.Dispatch(c.UserContext(), actor, req)
	if err != nil {
		switch {
		case errors.Is(err, memory.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: err.Error()})
		case errors.Is(err, memory.ErrEmptyTranscript),
			errors.Is(err, memory.ErrMissingSubject),
			errors.Is(err, memory.ErrInvalidStartTime):
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
		default:
			s.logger.Error("failed to save memory", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to save memory"})
		}
	}

	if result.Outcome == memory.OutcomeQueued {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}
	return c.JSON(result)
}

func (s *Server) handleGetMemories(c *fiber.Ctx) error {
	studentID := c.Params("studentId")
	chatbotID := c.Params("chatbotId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	result, err := s.retriever.Memories(c.UserContext(), studentID, chatbotID, limit)
	if err != nil {
		s.logger.Error("failed to retrieve memories", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to retrieve memories"})
	}
	return c.JSON(result)
}

func (s *Server) handleJobStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if s.status == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "job not found"})
	}

	status, err := s.status.Status(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "job not found"})
		}
		s.logger.Error("failed to load job status", "job_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to load job status"})
	}
	return c.JSON(status)
}
