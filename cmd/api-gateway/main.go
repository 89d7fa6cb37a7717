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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/merrykids-api/api/swagger"
	"github.com/noah-isme/merrykids-api/internal/handler"
	internalmiddleware "github.com/noah-isme/merrykids-api/internal/middleware"
	"github.com/noah-isme/merrykids-api/internal/repository"
	"github.com/noah-isme/merrykids-api/internal/service"
	"github.com/noah-isme/merrykids-api/migrations"
	"github.com/noah-isme/merrykids-api/pkg/cache"
	"github.com/noah-isme/merrykids-api/pkg/config"
	"github.com/noah-isme/merrykids-api/pkg/database"
	"github.com/noah-isme/merrykids-api/pkg/jobs"
	"github.com/noah-isme/merrykids-api/pkg/logger"
	"github.com/noah-isme/merrykids-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/merrykids-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/merrykids-api/pkg/middleware/requestid"
	"github.com/noah-isme/merrykids-api/pkg/storage"
)

// @title MerryKids API
// @version 1.0.0
// @description Staff records, admissions intake and account management for MerryKids.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location := cfg.Location()
	if location.String() != cfg.Timezone {
		logr.Warn("timezone not recognised, using UTC", zap.String("timezone", cfg.Timezone))
	}
	calendar := service.Calendar{Location: location}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS, logr); err != nil {
			return err
		}
	}

	readiness := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		redisRepo := repository.NewCacheRepository(client, "merrykids")
		cacheRepo = redisRepo
		readiness["redis"] = redisRepo.Ping
	}

	files, err := storage.NewLocalStorage(cfg.Storage)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	tx := database.NewTransactor(db)

	var sender mail.Sender
	if cfg.Mail.Provider == "sendgrid" {
		sender = mail.NewSendGridSender(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	} else {
		sender = mail.NewLogSender(logr)
	}
	notifications := service.NewNotificationService(sender, service.NotificationConfig{
		FrontendURL: cfg.Mail.FrontendURL,
		ResetTTL:    cfg.PasswordReset.TokenTTL,
		Queue: &jobs.QueueConfig{
			Workers:    cfg.Mail.Workers,
			MaxRetries: cfg.Mail.MaxRetries,
			RetryDelay: cfg.Mail.RetryDelay,
			Logger:     logr,
		},
	}, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	accounts := service.NewAccountService(userRepo, tx, notifications, validate, logr)
	if err := accounts.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		return err
	}

	auth := service.NewAuthService(userRepo, repository.NewPasswordResetRepository(db), notifications, tx, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		ResetTokenTTL:     cfg.PasswordReset.TokenTTL,
	})

	issuer := service.NewIdentifierIssuer(cfg.Identifier.MaxRetries, metrics, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.AnnouncementTTL, logr, cfg.Cache.Enabled)
	announcements := service.NewAnnouncementService(repository.NewAnnouncementRepository(db), files, tx, cacheSvc, cfg.Cache.AnnouncementTTL, calendar, validate, logr)

	teachers := service.NewTeacherService(service.TeacherServiceParams{
		Repo:      teacherRepo,
		Accounts:  accounts,
		Issuer:    issuer,
		Files:     files,
		Tx:        tx,
		Metrics:   metrics,
		Calendar:  calendar,
		Validator: validate,
		Logger:    logr,
	})
	submissions := service.NewSubmissionService(service.SubmissionServiceParams{
		Repo:          submissionRepo,
		Announcements: announcements,
		Issuer:        issuer,
		Files:         files,
		Tx:            tx,
		Calendar:      calendar,
		Validator:     validate,
		Logger:        logr,
	})
	exports := service.NewExportService(teacherRepo, submissionRepo, calendar, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/health", "/ready", "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metrics, readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:       handler.NewAuthHandler(auth),
		Users:      handler.NewUserHandler(accounts),
		Teachers:   handler.NewTeacherHandler(teachers, exports),
		Admissions: handler.NewAdmissionHandler(announcements, submissions, exports),
	}, auth)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
