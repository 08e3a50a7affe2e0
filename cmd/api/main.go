package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/veridex/custody-api/api/swagger"
	"github.com/veridex/custody-api/internal/handler"
	"github.com/veridex/custody-api/internal/middleware"
	"github.com/veridex/custody-api/internal/models"
	"github.com/veridex/custody-api/internal/repository"
	"github.com/veridex/custody-api/internal/service"
	"github.com/veridex/custody-api/pkg/cache"
	"github.com/veridex/custody-api/pkg/config"
	"github.com/veridex/custody-api/pkg/database"
	"github.com/veridex/custody-api/pkg/jobs"
	"github.com/veridex/custody-api/pkg/logger"
	corsmiddleware "github.com/veridex/custody-api/pkg/middleware/cors"
	reqidmiddleware "github.com/veridex/custody-api/pkg/middleware/requestid"
	"github.com/veridex/custody-api/pkg/storage"
)

// @title Veridex Custody API
// @version 1.0.0
// @description Digital chain of custody management with encrypted case files and evidence
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

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, statistics caching disabled", "error", err)
		} else {
			defer client.Close()
			cacheRepo := repository.NewCacheRepository(client, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	var blobs storage.BlobStore
	switch cfg.Evidence.Backend {
	case "minio":
		blobs, err = storage.NewObjectStore(rootCtx, storage.ObjectStoreConfig{
			Endpoint:  cfg.Evidence.MinioEndpoint,
			AccessKey: cfg.Evidence.MinioAccessKey,
			SecretKey: cfg.Evidence.MinioSecretKey,
			Bucket:    cfg.Evidence.MinioBucket,
			UseSSL:    cfg.Evidence.MinioUseSSL,
		})
	default:
		blobs, err = storage.NewLocalStorage(cfg.Evidence.StorageDir)
	}
	if err != nil {
		logr.Sugar().Fatalw("failed to init evidence blob store", "backend", cfg.Evidence.Backend, "error", err)
	}

	exportFiles, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	evidenceRepo := repository.NewEvidenceRepository(db)
	storageRepo := repository.NewStorageRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	jobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "custody-api",
		SingleSession:      true,
	})
	custodySvc := service.NewCustodyService(storageRepo, transferRepo, auditRepo, evidenceRepo, userRepo, caseRepo, validate, logr)
	caseSvc := service.NewCaseService(caseRepo, auditRepo, userRepo, custodySvc, validate, logr)
	evidenceSvc := service.NewEvidenceService(evidenceRepo, caseRepo, custodySvc, auditRepo, blobs, validate, logr, cfg.Evidence.MaxFileSizeBytes)
	auditSvc := service.NewAuditService(auditRepo, caseRepo, cacheSvc, nil, logr)

	exportSvc := service.NewExportService(auditRepo, caseRepo, exportFiles, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)
	worker := service.NewExportWorker(jobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("audit-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	jobSvc := service.NewExportJobService(jobRepo, queue, exportSvc, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})

	queue.Start(rootCtx)
	defer queue.Stop()
	jobSvc.RecoverPendingJobs(rootCtx)
	jobSvc.StartCleanup(rootCtx)

	if cfg.Sweep.Enabled {
		sweep := service.NewSweepService(caseRepo, auditRepo, logr, service.SweepConfig{
			Interval: cfg.Sweep.Interval,
			MaxAge:   cfg.Sweep.MaxAge,
		})
		sweep.Start(rootCtx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	caseHandler := handler.NewCaseHandler(caseSvc)
	evidenceHandler := handler.NewEvidenceHandler(evidenceSvc)
	custodyHandler := handler.NewCustodyHandler(custodySvc)
	auditHandler := handler.NewAuditHandler(auditSvc, jobSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Export downloads authenticate through the signed token itself.
	api.GET("/audit/exports/download/:token", auditHandler.DownloadExport)

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.GET("/auth/me", authHandler.Me)

		authed.POST("/cases", middleware.Require(models.ActionCaseCreate), caseHandler.Create)
		authed.GET("/cases", middleware.Require(models.ActionCaseView), caseHandler.List)
		authed.GET("/cases/:id", middleware.Require(models.ActionCaseView), caseHandler.Get)
		authed.PUT("/cases/:id", middleware.Require(models.ActionCaseEdit), caseHandler.Update)
		authed.POST("/cases/:id/assignments", middleware.Require(models.ActionCaseAssign), caseHandler.ProposeAssignment)
		authed.PUT("/assignments/:id", middleware.Require(models.ActionCaseApprove), caseHandler.ReviewAssignment)
		authed.PUT("/cases/:id/assignees", middleware.Require(models.ActionCaseApprove), caseHandler.DirectAssign)
		authed.POST("/cases/:id/closure", middleware.Require(models.ActionCaseClose), caseHandler.RequestClosure)
		authed.PUT("/cases/:id/closure", middleware.Require(models.ActionCaseClose), caseHandler.DecideClosure)
		authed.POST("/cases/:id/archive", middleware.Require(models.ActionCaseEdit), caseHandler.Archive)
		authed.POST("/cases/:id/withdraw", middleware.Require(models.ActionCaseEdit), caseHandler.Withdraw)
		authed.POST("/cases/:id/invalidate", middleware.Require(models.ActionCaseEdit), caseHandler.Invalidate)
		authed.POST("/cases/:id/reopen", middleware.RequireRoles(models.RoleAdmin), caseHandler.Reopen)

		authed.POST("/cases/:id/evidence", middleware.Require(models.ActionEvidenceUpload), evidenceHandler.Upload)
		authed.GET("/cases/:id/evidence", middleware.Require(models.ActionEvidenceView), evidenceHandler.ListByCase)
		authed.GET("/evidence/:id", middleware.Require(models.ActionEvidenceView), evidenceHandler.Get)
		authed.GET("/evidence/:id/download", middleware.Require(models.ActionEvidenceView), evidenceHandler.Download)
		authed.PUT("/evidence/:id", middleware.Require(models.ActionEvidenceUpload), evidenceHandler.UpdateDescription)
		authed.POST("/evidence/:id/invalidate", middleware.RequireRoles(models.RoleAdmin), evidenceHandler.Invalidate)
		authed.POST("/evidence/:id/verify", middleware.Require(models.ActionEvidenceVerify), evidenceHandler.Verify)
		authed.POST("/cases/:id/verify", middleware.Require(models.ActionEvidenceVerify), evidenceHandler.VerifyCase)

		authed.GET("/cases/:id/storage", middleware.Require(models.ActionCaseView), custodyHandler.StorageByCase)
		authed.GET("/storages", middleware.Require(models.ActionCustodyManage), custodyHandler.ListStorages)
		authed.GET("/storages/:id", middleware.Require(models.ActionCustodyManage), custodyHandler.StorageDetail)
		authed.PUT("/storages/:id/lock", middleware.Require(models.ActionStorageUnlock), custodyHandler.SetLock)
		authed.PUT("/storages/:id/custodian", middleware.Require(models.ActionCustodyManage), custodyHandler.Reassign)
		authed.GET("/custody/dashboard", middleware.Require(models.ActionCustodyManage), custodyHandler.Dashboard)
		authed.POST("/evidence/:id/transfers", middleware.Require(models.ActionTransferRequest), custodyHandler.RequestTransfer)
		authed.PUT("/transfers/:id", middleware.Require(models.ActionTransferApprove), custodyHandler.ReviewTransfer)
		authed.GET("/transfers/pending", middleware.Require(models.ActionTransferApprove), custodyHandler.PendingTransfers)
		authed.GET("/evidence/:id/chain", middleware.Require(models.ActionAuditView), custodyHandler.ChainOfCustody)

		authed.GET("/cases/:id/audit", middleware.Require(models.ActionAuditView), auditHandler.CaseTrail)
		authed.GET("/cases/:id/audit/combined", middleware.Require(models.ActionAuditExport), auditHandler.Combined)
		authed.GET("/cases/:id/audit/export", middleware.Require(models.ActionAuditExport), auditHandler.ExportCaseTrail)
		authed.GET("/evidence/:id/audit", middleware.Require(models.ActionAuditView), auditHandler.EvidenceTrail)
		authed.GET("/evidence/:id/audit/export", middleware.Require(models.ActionAuditExport), auditHandler.ExportEvidenceTrail)
		authed.GET("/audit/stats", middleware.Require(models.ActionAuditView), auditHandler.Stats)
		authed.POST("/audit/exports", middleware.Require(models.ActionAuditExport), auditHandler.CreateExport)
		authed.GET("/audit/exports/:id", middleware.Require(models.ActionAuditExport), auditHandler.ExportStatus)

		authed.GET("/system/metrics", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
