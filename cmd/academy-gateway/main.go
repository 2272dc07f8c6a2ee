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
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-gateway/api/swagger"
	"github.com/noah-isme/academy-gateway/internal/repository"
	"github.com/noah-isme/academy-gateway/internal/service"
	"github.com/noah-isme/academy-gateway/pkg/academy"
	"github.com/noah-isme/academy-gateway/pkg/cache"
	"github.com/noah-isme/academy-gateway/pkg/config"
	"github.com/noah-isme/academy-gateway/pkg/database"
	"github.com/noah-isme/academy-gateway/pkg/export"
	"github.com/noah-isme/academy-gateway/pkg/jobs"
	"github.com/noah-isme/academy-gateway/pkg/logger"
	"github.com/noah-isme/academy-gateway/pkg/outline"
	"github.com/noah-isme/academy-gateway/pkg/secure"
	"github.com/noah-isme/academy-gateway/pkg/storage"
)

// @title Academy Gateway API
// @version 1.0.0
// @description Session, catalog, certificate and course editor gateway in front of the Academy backend
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("postgres unavailable", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("migrations failed", zap.Error(err))
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	box, err := secure.NewBox(cfg.Session.TokenEncryptionKey)
	if err != nil {
		logr.Fatal("token encryption key invalid", zap.Error(err))
	}

	staging, err := storage.NewLocalStorage(cfg.Drafts.StagingDir)
	if err != nil {
		logr.Fatal("staging directory unavailable", zap.Error(err))
	}
	certificateFiles, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Fatal("certificate directory unavailable", zap.Error(err))
	}

	metrics := service.NewMetricsService(cfg.Drafts.StagingDir)
	validate := validator.New()

	api := academy.NewClient(cfg.Upstream.BaseURL,
		academy.WithTimeout(cfg.Upstream.Timeout),
		academy.WithObserver(metrics.ObserveUpstream),
	)

	localSessions := repository.NewLocalSessionRepository(db)
	catalogCache := repository.NewCacheRepository(rdb, "academy:cache:", logr)
	cacheSvc := service.NewCacheService(catalogCache, metrics, cfg.Upstream.CatalogTTL, logr, true)
	catalog := service.NewCatalogService(api, cacheSvc, cfg.Upstream.CatalogTTL, logr)
	events := service.NewEventHub(32, metrics)
	issuer := service.NewCertificateIssuer(api, metrics, logr)
	store := service.NewAppStore(api, catalog, issuer, events, metrics, logr)

	sessions := service.NewSessionService(api,
		localSessions,
		repository.NewEphemeralSessionRepository(rdb),
		box, store, validate, logr,
		service.SessionConfig{
			Secret:        cfg.JWT.Secret,
			Issuer:        cfg.JWT.Issuer,
			SessionTTL:    cfg.Session.SessionTTL,
			RememberMeTTL: cfg.Session.RememberMeTTL,
		},
	)

	certificates := service.NewCertificateService(store, api,
		export.NewCertificateRenderer("Academy"),
		certificateFiles,
		storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL),
		service.CertificateConfig{PublicURL: cfg.PublicURL, APIPrefix: cfg.APIPrefix},
		logr,
	)
	instructor := service.NewInstructorService(api, store, events, export.NewCSVExporter(), validate, logr)
	notifications := service.NewNotificationService(api, repository.NewNotificationReadRepository(db), store, logr)
	questions := service.NewQuestionService(api, store, validate, logr)
	profiles := service.NewProfileService(api, store, validate, logr)
	views, err := service.NewViewService(store, certificates, instructor, logr)
	if err != nil {
		logr.Fatal("view table invalid", zap.Error(err))
	}

	editor := service.NewEditorService(
		repository.NewCacheRepository(rdb, "academy:draft:", logr),
		api, store, staging,
		storage.NewSignedURLSigner(cfg.Drafts.SignedURLSecret, cfg.Drafts.SignedURLTTL),
		events, metrics, validate, logr,
		service.EditorConfig{
			DraftTTL:    cfg.Drafts.TTL,
			MaxFileSize: cfg.Drafts.MaxFileSizeBytes,
			PublicURL:   cfg.PublicURL,
			APIPrefix:   cfg.APIPrefix,
		},
	)
	probes := jobs.NewQueue("media-probe", editor.HandleProbe, jobs.QueueConfig{
		Workers:    cfg.MediaProbe.Workers,
		MaxRetries: cfg.MediaProbe.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	probes.Start(ctx)
	defer probes.Stop()
	editor.SetProbeQueue(probes)

	if cfg.Outline.APIKey != "" {
		generator, err := outline.NewGenerator(ctx, cfg.Outline.APIKey, cfg.Outline.Model, cfg.Outline.Timeout)
		if err != nil {
			logr.Fatal("outline generator unavailable", zap.Error(err))
		}
		editor.SetOutlineGenerator(generator)
	} else {
		logr.Info("course outline generation disabled")
	}

	go store.RunSweeper(ctx, cfg.Certificates.SweepInterval)
	go every(ctx, time.Hour, func() {
		if _, err := sessions.PurgeExpired(ctx); err != nil {
			logr.Warn("session purge failed", zap.Error(err))
		}
	})
	go every(ctx, time.Hour, editor.CleanupStaging)

	router := newRouter(cfg, logr, routerDeps{
		sessions:      sessions,
		store:         store,
		certificates:  certificates,
		notifications: notifications,
		questions:     questions,
		profiles:      profiles,
		views:         views,
		editor:        editor,
		instructor:    instructor,
		events:        events,
		metrics:       metrics,
		postgres:      localSessions,
		redis:         catalogCache,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logr.Warn("shutdown incomplete", zap.Error(err))
	}
	logr.Info("shutdown complete")
}

// every runs fn on each tick until ctx is cancelled.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
