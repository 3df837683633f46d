package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilgisen/contentpipe/internal/api"
	"github.com/bilgisen/contentpipe/internal/app"
	"github.com/bilgisen/contentpipe/internal/config"
	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/queue"
	"github.com/bilgisen/contentpipe/internal/wordpress"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	output := "stdout"
	if cfg.LogFile != "" {
		output = cfg.LogFile
	}
	logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.Env == "development",
	})

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	store, closeStore, err := app.OpenStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.JobStore).Msg("Failed to open job store")
	}
	defer func() {
		log.Info().Msg("Closing job store...")
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Error closing job store")
		}
	}()

	p, err := app.NewPipeline(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	redisOpt, err := queue.RedisOpt(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid queue configuration")
	}
	queueClient := queue.NewClient(redisOpt, cfg.QueueName, cfg.JobTimeout)
	defer queueClient.Close()

	// Start the background worker
	worker := queue.NewWorker(p.Orchestrator, logger.For("worker"))
	workerServer := queue.NewServer(redisOpt, queue.ServerConfig{
		Queue:       cfg.QueueName,
		Concurrency: cfg.WorkerConcurrency,
	})
	if err := workerServer.Start(worker.Mux()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start worker")
	}

	// Create Fiber app and routes
	server := api.NewApp(cfg)
	handlers := api.NewHandlers(store, queueClient, p.Generator.Providers(), wordpress.WithRetryDelay(cfg.RetryDelay))
	api.SetupRoutes(server, handlers, cfg)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Active runs are interrupted and their jobs can be resumed
	workerServer.Shutdown()

	log.Info().Msg("Server exited properly")
}
