package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/complyvault/evidence-api/api/swagger"
	"github.com/complyvault/evidence-api/internal/handler"
	"github.com/complyvault/evidence-api/internal/middleware"
	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/internal/repository"
	"github.com/complyvault/evidence-api/internal/service"
	"github.com/complyvault/evidence-api/pkg/cache"
	"github.com/complyvault/evidence-api/pkg/clock"
	"github.com/complyvault/evidence-api/pkg/config"
	"github.com/complyvault/evidence-api/pkg/database"
	"github.com/complyvault/evidence-api/pkg/export"
	"github.com/complyvault/evidence-api/pkg/logger"
	corrmiddleware "github.com/complyvault/evidence-api/pkg/middleware/correlation"
	corsmiddleware "github.com/complyvault/evidence-api/pkg/middleware/cors"
	"github.com/complyvault/evidence-api/pkg/storage"
)

// @title ComplyVault Evidence API
// @version 1.0.0
// @description Evidence ingestion kernel: drafts, sealing, state transitions and audit trail
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	blobs, err := storage.NewLocalStorage(cfg.Attachments.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	clk := clock.SystemClock{}
	ids := clock.UUIDProvider{}

	draftRepo := repository.NewDraftRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	evidenceRepo := repository.NewEvidenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	txRunner := repository.NewTxRunner(db)

	var evidenceCache *repository.EvidenceCache
	if cfg.Kernel.EvidenceCacheEnable {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, evidence cache disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			evidenceCache = repository.NewEvidenceCache(redisClient, cfg.Kernel.EvidenceCacheTTL, logr)
		}
	}

	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, clk, ids, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	draftSvc := service.NewDraftService(draftRepo, profileRepo, attachmentRepo, auditSvc, clk, ids, logr,
		service.WithDraftStorageTimeout(cfg.Kernel.StorageTimeout),
		service.WithProfileGate(cfg.Kernel.ProfileGateEnabled))

	sealSvc := service.NewSealService(txRunner, draftRepo, evidenceRepo, attachmentRepo, auditSvc,
		repository.IsUniqueViolation, clk, ids, logr,
		service.WithSealStorageTimeout(cfg.Kernel.StorageTimeout),
		service.WithDefaultRetention(models.RetentionPolicy(cfg.Kernel.DefaultRetention)),
		service.WithSealMetrics(metricsSvc))

	transitionOpts := []service.TransitionServiceOption{
		service.WithTransitionStorageTimeout(cfg.Kernel.StorageTimeout),
		service.WithTransitionMetrics(metricsSvc),
	}
	if evidenceCache != nil {
		transitionOpts = append(transitionOpts, service.WithTransitionCache(evidenceCache))
	}
	transitionSvc := service.NewTransitionService(evidenceRepo, auditSvc, clk, logr, transitionOpts...)

	evidenceOpts := []service.EvidenceServiceOption{
		service.WithEvidenceStorageTimeout(cfg.Kernel.StorageTimeout),
		service.WithReceiptRenderer(export.NewReceiptRenderer()),
	}
	if evidenceCache != nil {
		evidenceOpts = append(evidenceOpts, service.WithEvidenceCache(evidenceCache))
	}
	evidenceSvc := service.NewEvidenceService(evidenceRepo, clk, logr, evidenceOpts...)

	attachmentSvc := service.NewAttachmentService(attachmentRepo, draftRepo, blobs, signer, auditSvc, clk, ids, logr,
		service.WithAttachmentStorageTimeout(cfg.Kernel.StorageTimeout),
		service.WithMaxFileSize(cfg.Attachments.MaxFileSizeBytes),
		service.WithAllowedMIMEs(cfg.Attachments.AllowedMIMEs))

	draftHandler := handler.NewDraftHandler(draftSvc, sealSvc)
	evidenceHandler := handler.NewEvidenceHandler(evidenceSvc, transitionSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corrmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		drafts := api.Group("/drafts")
		{
			drafts.POST("", draftHandler.Create)
			drafts.GET("/:id", draftHandler.Get)
			drafts.PATCH("/:id", draftHandler.Update)
			drafts.POST("/:id/for-seal", draftHandler.ForSeal)
			drafts.POST("/:id/seal", draftHandler.Seal)
			drafts.GET("/:id/evidence", evidenceHandler.GetByDraft)
			drafts.POST("/:id/attachments", attachmentHandler.Upload)
			drafts.GET("/:id/attachments", attachmentHandler.List)
		}

		attachments := api.Group("/attachments")
		{
			attachments.POST("/:id/download-url", attachmentHandler.DownloadURL)
			attachments.GET("/download", attachmentHandler.Download)
		}

		evidence := api.Group("/evidence")
		{
			evidence.GET("/:id", evidenceHandler.Get)
			evidence.GET("/:id/receipt", evidenceHandler.Receipt)
			evidence.POST("/:id/transition",
				middleware.RequireRoles(models.RoleComplianceOfficer, models.RoleDataSteward),
				evidenceHandler.Transition)
		}

		api.GET("/audit-events",
			middleware.RequireRoles(models.RoleComplianceOfficer, models.RoleAuditor),
			auditHandler.List)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
