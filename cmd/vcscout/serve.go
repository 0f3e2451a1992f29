package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vc-scout/backend/internal/api"
	"github.com/vc-scout/backend/internal/api/handlers"
	"github.com/vc-scout/backend/internal/companies"
	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/lists"
	"github.com/vc-scout/backend/internal/llm"
	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/internal/scraper/web"
	"github.com/vc-scout/backend/internal/searches"
	"github.com/vc-scout/backend/internal/users"
	appLogger "github.com/vc-scout/backend/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	appLogger.Info("Starting VC Scout API server")
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	store, redisClient, closeStore, err := openEnrichmentStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.LLM.APIKey == "" {
		appLogger.Warn("No LLM API key configured, enrichment requests will fail")
	}

	companySvc := companies.NewService(db)
	userSvc := users.NewService(db)
	listSvc := lists.NewService(db, companySvc)
	searchSvc := searches.NewService(db)

	llmClient := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})
	scraper := web.NewClient(web.Config{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   time.Duration(cfg.Scraper.TimeoutSec) * time.Second,
		MaxChars:  cfg.Scraper.MaxChars,
	})
	enrichSvc := enrichment.NewService(store, scraper, llmClient, db, companySvc, enrichment.Config{
		Timeout:     time.Duration(cfg.Enrichment.TimeoutSec) * time.Second,
		MinKeywords: cfg.Enrichment.MinKeywords,
	})

	health := map[string]handlers.Pinger{"sqlite": db}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	server := api.NewServer(api.Config{
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:       cfg.Server.BodyLimit,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Development:     cfg.Server.Development,
		PageSize:        cfg.Directory.PageSize,
		EnrichPerMinute: cfg.RateLimit.EnrichPerMinute,
		AccessLog:       cfg.Server.Development,
		Logger:          appLogger.GetLogger(),
	}, api.Services{
		Companies:   companySvc,
		Users:       userSvc,
		Lists:       listSvc,
		Searches:    searchSvc,
		Enrichments: enrichSvc,
		Health:      health,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := server.Listen(addr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Server shutting down gracefully...")
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	appLogger.Info("Server stopped")
	return nil
}
