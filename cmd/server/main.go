package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"moderation-service/internal/config"
	"moderation-service/internal/filter_client"
	"moderation-service/internal/handler"
	"moderation-service/internal/llm"
	"moderation-service/internal/logger"
	"moderation-service/internal/metrics"
	"moderation-service/internal/middleware"
	"moderation-service/internal/repository"
	"moderation-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Moderation Service...")

	// Initialize repository
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		log.Fatal("Failed to create data directory", zap.Error(err))
	}

	db, err := repository.NewSQLiteDB(cfg.Database.Path, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := repository.MigrateDB(db, log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	repo := repository.NewModerationRepository(db, log)
	defer repo.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// Primary classifier, behind a circuit breaker
	primary := filter_client.NewClient(filter_client.Config{
		BaseURL:       cfg.Classifier.URL,
		Timeout:       cfg.Classifier.Timeout,
		HealthTimeout: cfg.Classifier.HealthTimeout,
	}, log)

	chain := []service.Classifier{
		service.NewBreakerClassifier(primary, cfg.Classifier.Breaker, log),
	}

	// Generative fallbacks in configured order
	for i, providerCfg := range cfg.GenerativeProviders() {
		completer, err := llm.NewCompleter(providerCfg, log)
		if err != nil {
			log.Error("Failed to create provider, skipping",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		fallback := llm.NewClassifier(string(providerCfg.Type), completer, log)
		defer fallback.Close()

		chain = append(chain, fallback)
		log.Info("Fallback provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.Any("model", completer.GetModelInfo()["model"]))
	}
	if len(chain) == 1 {
		log.Warn("No generative fallback configured, primary classifier failures will surface as 503")
	}

	moderator := service.NewModerator(chain, repo, m, log)
	moderator.SetDefaultPlatform(cfg.Moderation.DefaultPlatform)

	status := service.NewStatusService(repo)
	notifier := service.NewNotifier(status, cfg.Events.PollInterval, log)
	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(handler.Deps{
		Moderator: moderator,
		Status:    status,
		Notifier:  notifier,
		Upstream:  primary,
		Auth:      auth,
		Metrics:   m,
		Gatherer:  reg,
		Logger:    log,
	})

	gin.SetMode(cfg.Server.GinMode)
	router := apiHandler.NewRouter()

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown. Event streams never finish on their own, so their
	// request contexts are cancelled as soon as shutdown starts.
	baseCtx, stopStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	probeCtx, probeCancel := context.WithTimeout(context.Background(), cfg.Classifier.HealthTimeout)
	healthy := primary.Healthy(probeCtx)
	probeCancel()

	log.Info("Moderation Service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("classifier_url", cfg.Classifier.URL),
		zap.Bool("classifier_healthy", healthy),
		zap.Strings("backends", moderator.Backends()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
