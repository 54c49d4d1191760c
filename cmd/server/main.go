package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxnow-backend/internal/classifier"
	"voxnow-backend/internal/config"
	"voxnow-backend/internal/handler"
	"voxnow-backend/internal/llm"
	"voxnow-backend/internal/llm/chatapi"
	"voxnow-backend/internal/middleware"
	"voxnow-backend/internal/notify"
	"voxnow-backend/internal/repository"
	"voxnow-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yml"
	}

	// Bootstrap logger before config is available
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if cfg.Server.Environment != "local" {
		prod, err := zap.NewProduction()
		if err != nil {
			logger.Fatal("Failed to create production logger", zap.Error(err))
		}
		logger = prod
	}
	defer logger.Sync()

	logger.Info("Starting VoxNow backend",
		zap.String("environment", cfg.Server.Environment))

	// Database
	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.Type == "postgres" {
		if err := repository.MigrateDB(db, "migrations", logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// LLM providers with failover
	llmClient, err := llm.NewMultiProviderClient(llm.MultiProviderConfig{
		Providers:   cfg.Providers,
		MaxFailures: cfg.MaxFailuresBeforeSwitch,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM providers", zap.Error(err))
	}
	defer llmClient.Close()

	// Repositories
	voicemailRepo := repository.NewVoicemailRepository(db, logger)
	analysisRepo := repository.NewAnalysisRepository(db, logger)
	authRepo := repository.NewAuthRepository(db, logger)

	// Optional urgent-voicemail notifier
	var notifier service.Notifier
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
		} else if tg != nil {
			notifier = tg
		}
	}

	// Pipeline
	clf := classifier.New(llmClient, classifier.Config{
		Temperature:     cfg.Classifier.Temperature,
		MaxOutputTokens: cfg.Classifier.MaxOutputTokens,
		MaxAttempts:     cfg.Classifier.MaxAttempts,
		AttemptTimeout:  cfg.Classifier.AttemptTimeout.Std(),
	}, logger)
	pipeline := service.NewPipeline(clf, voicemailRepo, analysisRepo, notifier, logger)

	// Support chat proxy
	var chatClient handler.ChatClient
	if cfg.Chat.APIKey != "" {
		cc, err := chatapi.NewClient(chatapi.Config{
			APIKey:    cfg.Chat.APIKey,
			BaseURL:   cfg.Chat.BaseURL,
			Provider:  "openai",
			ModelName: cfg.Chat.ModelName,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize chat client, continuing without it", zap.Error(err))
		} else {
			chatClient = cc
		}
	}

	// Services and handlers
	authService := service.NewAuthService(authRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std(), logger)
	if err := authService.EnsureAdmin(cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword); err != nil {
		logger.Fatal("Failed to bootstrap admin user", zap.Error(err))
	}
	sessionRequired := middleware.AuthMiddleware(authService.JWTSecret(), logger)

	apiHandler := handler.NewHandler(pipeline, voicemailRepo, analysisRepo, chatClient, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	if cfg.Server.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	apiHandler.RegisterRoutes(router, sessionRequired)
	authHandler.RegisterRoutes(router, sessionRequired)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
