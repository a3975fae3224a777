package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/specs-nexus-api/api/swagger"
	"github.com/noah-isme/specs-nexus-api/internal/handler"
	"github.com/noah-isme/specs-nexus-api/internal/middleware"
	"github.com/noah-isme/specs-nexus-api/internal/repository"
	"github.com/noah-isme/specs-nexus-api/internal/router"
	"github.com/noah-isme/specs-nexus-api/internal/service"
	"github.com/noah-isme/specs-nexus-api/pkg/cache"
	"github.com/noah-isme/specs-nexus-api/pkg/config"
	"github.com/noah-isme/specs-nexus-api/pkg/database"
	"github.com/noah-isme/specs-nexus-api/pkg/llm"
	"github.com/noah-isme/specs-nexus-api/pkg/logger"
	"github.com/noah-isme/specs-nexus-api/pkg/storage"
)

// @title SPECS Nexus API
// @version 1.0.0
// @description Membership, events and clearance backend for the SPECS student organization
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL(), logr); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, cfg.Redis.KeyPrefix, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cacheRepo != nil)

	store, staticURL, staticDir, err := newObjectStore(cfg.Storage)
	if err != nil {
		logr.Fatal("object storage unavailable", zap.Error(err))
	}

	validate := validator.New()
	loc := cfg.Org.Location

	userRepo := repository.NewUserRepository(db)
	officerRepo := repository.NewOfficerRepository(db)
	eventRepo := repository.NewEventRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	clearanceRepo := repository.NewClearanceRepository(db)
	qrCodeRepo := repository.NewQRCodeRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	uploads := service.NewUploadService(store, service.UploadConfig{
		MaxFileSizeBytes:  cfg.Uploads.MaxFileSizeBytes,
		ImageMaxDimension: cfg.Uploads.ImageMaxDimension,
	}, metrics, logr)
	exports := service.NewExportService(nil, nil, logr)

	authSvc := service.NewAuthService(userRepo, officerRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	officerSvc := service.NewOfficerService(officerRepo, userRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, uploads, cacheSvc, validate, logr, loc)
	announcementSvc := service.NewAnnouncementService(announcementRepo, uploads, validate, logr, loc)
	membershipSvc := service.NewMembershipService(service.MembershipDeps{
		Clearances: clearanceRepo,
		QRCodes:    qrCodeRepo,
		Users:      userRepo,
		Uploader:   uploads,
		Cache:      cacheSvc,
		Exporter:   exports,
	}, validate, logr, loc)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metrics, exports, logr, loc)

	chatHandler := handler.NewChatHandler(nil)
	var chatLimiter *middleware.RateLimiter
	if cfg.Chat.Enabled {
		chatSvc := service.NewChatService(service.ChatDeps{
			Events:        eventSvc,
			Announcements: announcementSvc,
			Clearances:    clearanceRepo,
			Officers:      officerRepo,
			Completer:     llm.NewClient(cfg.Chat, nil),
		}, cfg.Org.Name, metrics, validate, logr, loc)
		chatHandler = handler.NewChatHandler(chatSvc)
		chatLimiter = middleware.NewRateLimiter(cfg.Chat.RatePerMinute, cfg.Chat.Burst)
		chatLimiter.StartCleanup(ctx, 5*time.Minute)
	}

	engine := router.New(router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
		Audit:          auditRepo,
		ChatLimiter:    chatLimiter,
		StaticURL:      staticURL,
		StaticDir:      staticDir,
	}, router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Officer:      handler.NewOfficerHandler(authSvc, officerSvc),
		Event:        handler.NewEventHandler(eventSvc),
		Announcement: handler.NewAnnouncementHandler(announcementSvc),
		Membership:   handler.NewMembershipHandler(membershipSvc),
		Analytics:    handler.NewAnalyticsHandler(analyticsSvc),
		Chat:         chatHandler,
		Metrics:      handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver, "chat", cfg.Chat.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type objectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// newObjectStore returns the configured store. The local driver also returns
// the URL prefix and directory the router must serve.
func newObjectStore(cfg config.StorageConfig) (objectStore, string, string, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal:
		local, err := storage.NewLocalStorage(cfg.LocalDir, cfg.LocalPublicURL)
		if err != nil {
			return nil, "", "", err
		}
		return local, cfg.LocalPublicURL, local.Dir(), nil
	default:
		r2, err := storage.NewR2Storage(cfg)
		if err != nil {
			return nil, "", "", err
		}
		return r2, "", "", nil
	}
}
