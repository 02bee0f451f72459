package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aclio/aclio/config"
	"github.com/aclio/aclio/llm"
	"github.com/aclio/aclio/routes"
	"github.com/aclio/aclio/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	client, err := llm.New(context.Background(), llm.Config{
		Provider:          cfg.LLMProvider,
		APIKey:            cfg.LLMAPIKey,
		BaseURL:           cfg.LLMBaseURL,
		Model:             cfg.LLMModel,
		Timeout:           time.Duration(cfg.LLMTimeoutSec) * time.Second,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
		MaxRetries:        cfg.LLMMaxRetries,
		Logger:            utils.Logger.Named("llm"),
	})
	if err != nil {
		utils.Sugar.Fatalf("llm client: %v", err)
	}
	if !client.Configured() {
		utils.Logger.Warn("no LLM API key configured; AI endpoints will answer 500",
			zap.String("provider", client.Provider()))
	}

	r := routes.SetupRouter(cfg, client)

	utils.Sugar.Infof("Starting server on port %s (graceful, provider=%s)", cfg.AppPort, client.Provider())
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
