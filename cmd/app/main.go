package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UD_referral_bot/internal/api"
	"UD_referral_bot/internal/middleware"
	"UD_referral_bot/internal/notifier"
	"UD_referral_bot/internal/repository"
	"UD_referral_bot/internal/scheduler"
	"UD_referral_bot/internal/service"
	"UD_referral_bot/internal/storage"
	"UD_referral_bot/pkg/auth"
	"UD_referral_bot/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	loc, err := cfg.Distribution.Location()
	if err != nil {
		zapLogger.Fatal("Failed to resolve timezone", zap.Error(err))
	}

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	osFs := afero.NewOsFs()
	files, err := storage.NewFileStore(osFs, cfg.Distribution.MediaDir)
	if err != nil {
		zapLogger.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	bot, err := notifier.New(notifier.Config{
		BotToken: cfg.TelegramAuth.TelegramBotToken,
		Debug:    cfg.TelegramAuth.DebugMode,
	}, osFs)
	if err != nil {
		zapLogger.Fatal("Failed to initialize telegram notifier", zap.Error(err))
	}

	events := service.NewLogEventSink(logger.Named("events"))
	clock := service.NewClock(loc)

	userService := service.NewUserService(repo, events)
	referralService := service.NewReferralService(repo, events)
	contentPlanService := service.NewContentPlanService(repo, clock, events)
	cohortService := service.NewCohortService(repo, clock, events)
	svc := service.NewService(userService, referralService, contentPlanService, cohortService)

	distribution := service.NewDistributionService(svc.ContentPlanService, svc.ReferralService, bot, files, events).
		WithWorkers(cfg.Distribution.Workers)
	onboarding := service.NewOnboardingService(svc.CohortService, bot, events,
		cfg.Onboarding.WindowDays, cfg.Onboarding.Messages).
		WithWorkers(cfg.Distribution.Workers)

	jobs := scheduler.New(loc)
	err = jobs.Add("distribution", cfg.Distribution.Schedule, cfg.Distribution.RunTimeout, func(ctx context.Context) error {
		_, err := distribution.Run(ctx)
		return err
	})
	if err != nil {
		zapLogger.Fatal("Failed to schedule distribution", zap.Error(err))
	}
	if len(cfg.Onboarding.Messages) > 0 {
		err = jobs.Add("onboarding", cfg.Onboarding.Schedule, cfg.Distribution.RunTimeout, func(ctx context.Context) error {
			_, err := onboarding.Run(ctx)
			return err
		})
		if err != nil {
			zapLogger.Fatal("Failed to schedule onboarding", zap.Error(err))
		}
	}

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	authz := middleware.NewAuthorization(svc.UserService)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, svc.UserService, svc.ReferralService, telegramAuth, authz)
	api.NewContentPlanRoutes(a, svc.ContentPlanService, files, telegramAuth, authz)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	jobs.Start()
	go func() {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shut down server", zap.Error(err))
	}
	jobs.Stop(ctx)
}
