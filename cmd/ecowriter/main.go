package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/digkill/ecowriter/internal/admin"
	"github.com/digkill/ecowriter/internal/config"
	"github.com/digkill/ecowriter/internal/database"
	"github.com/digkill/ecowriter/internal/gemini"
	"github.com/digkill/ecowriter/internal/notify"
	"github.com/digkill/ecowriter/internal/repository"
	"github.com/digkill/ecowriter/internal/service"
	"github.com/digkill/ecowriter/internal/storage"
	"github.com/digkill/ecowriter/internal/web"
	"github.com/digkill/ecowriter/internal/workflow"
	"github.com/digkill/ecowriter/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := database.NewPool(cfg.MySQLDSN, database.Migrate)
	defer func() {
		if err := pool.Close(); err != nil {
			logr.Error("close database", "err", err)
		}
	}()
	// The pool connects lazily; a failed warm-up is retried on first use.
	if _, err := pool.DB(ctx); err != nil {
		logr.Warn("database not ready at startup", "err", err)
	}

	model, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GenerationTimeout, logr)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}
	defer model.Close()

	proofs, err := storage.NewProofStore(storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
	})
	if err != nil {
		log.Fatalf("proof store: %v", err)
	}

	notifier := newNotifier(cfg, logr)

	paymentRepo := repository.NewPaymentRepository(pool)

	planService := service.NewPlanService(cfg)
	generationService := service.NewGenerationService(logr, model)
	paymentService := service.NewPaymentService(logr, paymentRepo, planService, proofs, notifier, cfg.ScreenshotMaxWidth)

	controllers := workflow.NewSessions(func() *workflow.Controller {
		return workflow.NewController(logr, generationService, paymentService, planService)
	})
	go controllers.RunJanitor(ctx, 10*time.Minute, cfg.SessionIdleTimeout)

	appServer := web.NewServer(web.Options{
		Addr:              cfg.AppListenAddr,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		SessionKey:        []byte(cfg.SessionKey),
		CookieSecure:      cfg.CookieSecure,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		RequestTimeout:    cfg.RequestTimeout,
		GenerationTimeout: cfg.GenerationTimeout,
	}, logr, generationService, paymentService, planService, controllers)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPasswordHash, logr, paymentService)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		if err := appServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("app server stopped", "err", err)
			stop()
		}
	}()

	wg.Wait()
	logr.Info("shutdown complete")
}

func newNotifier(cfg config.Config, logr *slog.Logger) service.Notifier {
	if cfg.NotifyBotToken == "" {
		return notify.Nop{}
	}
	tg, err := notify.NewTelegram(cfg.NotifyBotToken, cfg.NotifyChatID, logr)
	if err != nil {
		logr.Error("telegram notifier disabled", "err", err)
		return notify.Nop{}
	}
	return tg
}
