package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/autofill"
	"github.com/opora-ai/docforge/pkg/catalog"
	"github.com/opora-ai/docforge/pkg/config"
	"github.com/opora-ai/docforge/pkg/database"
	"github.com/opora-ai/docforge/pkg/extractor"
	"github.com/opora-ai/docforge/pkg/handlers"
	"github.com/opora-ai/docforge/pkg/llm"
	"github.com/opora-ai/docforge/pkg/logging"
	"github.com/opora-ai/docforge/pkg/mailer"
	"github.com/opora-ai/docforge/pkg/renderer"
	"github.com/opora-ai/docforge/pkg/repositories"
	"github.com/opora-ai/docforge/pkg/scoring"
	"github.com/opora-ai/docforge/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("ai_model", cfg.AI.Model),
		zap.Bool("mail_enabled", cfg.Mail.Enabled))

	// Advisory record store. The engine stays up without it: generation and
	// sessions work, record capture is disabled.
	var records services.Records
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Warn("Database unavailable, record capture disabled", zap.Error(err))
	} else {
		defer db.Close()

		sqlDB := stdlib.OpenDBFromPool(db.Pool)
		if err := database.RunMigrations(sqlDB, "migrations", logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}

		records = services.Records{
			Applications: repositories.NewApplicationRepository(db),
			Complaints:   repositories.NewComplaintRepository(db),
			Documents:    repositories.NewDocumentRepository(db),
		}
	}

	aiClient, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
		Timeout:  cfg.AI.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create AI client", zap.Error(err))
	}

	cat, err := catalog.NewService(cfg.Documents.TemplatesDir, logger)
	if err != nil {
		logger.Fatal("Failed to open template catalog", zap.Error(err))
	}
	rend, err := renderer.NewService(cat, cfg.Documents.GeneratedDir, cfg.BaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to open artifact store", zap.Error(err))
	}

	ext := extractor.NewService(aiClient, logger)
	scorer := scoring.New(cfg.Autofill.CompletenessThreshold, cfg.Autofill.QuestionBatchSize)

	var mail mailer.Mailer
	if cfg.Mail.Enabled {
		mail = mailer.NewSMTP(mailer.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			From:     cfg.Mail.From,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		}, logger)
	} else {
		mail = mailer.NewNoop(logger)
	}

	assistant := services.NewAssistantService(aiClient, cat, ext, scorer, rend, records, mail, logger)

	manager := autofill.NewManager(cat, scorer, rend, autofill.NewMemoryStore(),
		cfg.Autofill.QuestionBatchSize, logger)
	manager.StartSweeper(ctx, cfg.Autofill.SweepInterval, cfg.Autofill.IdleTimeout)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(assistant, logger).RegisterRoutes(mux)
	handlers.NewTemplatesHandler(cat, logger).RegisterRoutes(mux)
	handlers.NewDocumentsHandler(assistant, rend, logger).RegisterRoutes(mux)
	handlers.NewAutofillHandler(manager, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting docforge",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
