package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/digkill/promoshot/internal/api"
	"github.com/digkill/promoshot/internal/config"
	"github.com/digkill/promoshot/internal/database"
	"github.com/digkill/promoshot/internal/generation"
	"github.com/digkill/promoshot/internal/metrics"
	"github.com/digkill/promoshot/internal/ratelimit"
	"github.com/digkill/promoshot/internal/report"
	"github.com/digkill/promoshot/internal/repository"
	"github.com/digkill/promoshot/internal/service"
	"github.com/digkill/promoshot/internal/storage"
	"github.com/digkill/promoshot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	uploader, err := storage.NewUploader(storage.ConfigFrom(cfg))
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	images, err := newImageGenerator(cfg, logr)
	if err != nil {
		log.Fatalf("image provider: %v", err)
	}

	reporters := report.Multi{report.NewLogger(logr)}
	if cfg.TelegramAlertsEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("telegram bot: %v", err)
		}
		alerts := report.NewTelegram(botAPI, cfg.TelegramAlertChatID, logr)
		go alerts.Run(ctx)
		reporters = append(reporters, alerts)
	}
	if cfg.SentryDSN != "" {
		sentryReporter, err := report.NewSentry(cfg.SentryDSN, cfg.SentryEnvironment)
		if err != nil {
			log.Fatalf("sentry: %v", err)
		}
		defer sentryReporter.Flush(2 * time.Second)
		reporters = append(reporters, sentryReporter)
	}

	var limiter api.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		limiter = ratelimit.New(rdb, cfg.RateLimitPerMinute, logr)
	} else {
		logr.Warn("REDIS_URL not set, generation requests are not rate limited")
	}

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	projectService := service.NewProjectService(
		cfg,
		logr,
		userRepo,
		projectRepo,
		uploader,
		images,
		generation.UnavailableVideo{},
		reporters,
		metrics.NewPrometheus(prometheus.DefaultRegisterer),
	)
	creditService := service.NewCreditService(userRepo, logr, cfg.DefaultUserCredits)

	server := api.NewServer(cfg, logr, projectService, creditService, limiter, db)
	if err := server.Run(ctx); err != nil {
		logr.Error("api server stopped", "err", err)
	}
}

func newImageGenerator(cfg config.Config, logr *slog.Logger) (service.ImageGenerator, error) {
	httpClient := &http.Client{Timeout: cfg.GenerationTimeout}
	switch cfg.ImageProvider {
	case config.ProviderOpenAI:
		return generation.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, httpClient, logr), nil
	case config.ProviderKIE:
		return generation.NewKIEClient(cfg.KIEAPIKey, cfg.KIEBaseURL, httpClient, cfg.MaxImageBytes, logr), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
}
