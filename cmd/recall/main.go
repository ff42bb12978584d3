// Package main is the entry point for the conversation-memory service.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classmind/recall/internal/config"
	"github.com/classmind/recall/internal/jobs"
	"github.com/classmind/recall/internal/memory"
	"github.com/classmind/recall/internal/repository"
	"github.com/classmind/recall/internal/server"
	"github.com/classmind/recall/internal/summarizer"
)

const chatbotNameCacheTTL = 10 * time.Minute

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	llm := summarizer.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.SummaryModel,
		summarizer.WithTimeout(cfg.SummaryTimeout),
		summarizer.WithEmbeddingModel(cfg.EmbeddingModel),
	)

	chatbots := memory.NewCachedChatbotDirectory(store.Chatbots, chatbotNameCacheTTL)
	processor := memory.NewProcessor(store.Memories, llm, chatbots, llm)

	var (
		backend *jobs.RedisBackend
		worker  *jobs.Worker
		status  server.JobStatus
		mode    = memory.BackendDirect
	)
	if cfg.QueueEnabled {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to parse redis url: %v", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer client.Close()

		backend = jobs.NewRedisBackend(client, jobs.WithJobTTL(cfg.JobTTL))
		worker = jobs.NewWorker(backend, memory.NewJobHandler(processor),
			jobs.WithConcurrency(cfg.WorkerCount),
			jobs.WithLogger(logger),
		)
		worker.Start()
		defer worker.Stop()

		status = jobs.NewStatusService(backend)
		mode = memory.BackendQueued
	}

	authorizer := &memory.SubjectOrOwnerAuthorizer{Rooms: store.Rooms}
	guard := memory.NewDedupGuard(store.Memories)

	var jobBackend jobs.Backend
	if backend != nil {
		jobBackend = backend
	}
	dispatcher := memory.NewDispatcher(mode, guard, processor, jobBackend, authorizer)
	retriever := memory.NewRetriever(store.Memories, store.Profiles, llm, cfg.MemoryLimit)

	srv := server.New(dispatcher, retriever, status, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("failed to shut down server", "error", err)
		}
		cancel()
	}()

	if err := srv.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
