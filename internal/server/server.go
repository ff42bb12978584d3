// Package server exposes the memory pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/classmind/recall/internal/jobs"
	"github.com/classmind/recall/internal/memory"
	"github.com/classmind/recall/internal/types"
)

// Dispatcher is the save entry point.
type Dispatcher interface {
	Dispatch(ctx context.Context, actor memory.Actor, req types.SaveRequest) (*memory.DispatchResult, error)
}

// Retriever is the read entry point.
type Retriever interface {
	Memories(ctx context.Context, studentID, chatbotID string, limit int) (*memory.RetrievalResult, error)
}

// JobStatus is the poll entry point. It may be nil when no job backend is
// deployed; every job id is then unknown.
type JobStatus interface {
	Status(ctx context.Context, id string) (*jobs.Status, error)
}

// Server routes HTTP requests to the pipeline services.
type Server struct {
	dispatcher Dispatcher
	retriever  Retriever
	status     JobStatus
	logger     *slog.Logger
	app        *fiber.App
}

// New creates the HTTP server and registers routes.
func New(dispatcher Dispatcher, retriever Retriever, status JobStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		dispatcher: dispatcher,
		retriever:  retriever,
		status:     status,
		logger:     logger,
		app:        app,
	}

	app.Use(s.logRequests)
	app.Get("/ping", s.handlePing)
	app.Post("/api/memories", s.handleSaveMemory)
	app.Get("/api/memories/:studentId/:chatbotId", s.handleGetMemories)
	app.Get("/api/jobs/:id", s.handleJobStatus)

	return s
}

// Listen starts serving on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("starting memory API server", "listen", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}
