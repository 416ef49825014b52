package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/doc-review-api/api/swagger"
	"github.com/noah-isme/doc-review-api/internal/handler"
	"github.com/noah-isme/doc-review-api/internal/middleware"
	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/repository"
	"github.com/noah-isme/doc-review-api/internal/service"
	"github.com/noah-isme/doc-review-api/pkg/cache"
	"github.com/noah-isme/doc-review-api/pkg/config"
	"github.com/noah-isme/doc-review-api/pkg/database"
	"github.com/noah-isme/doc-review-api/pkg/jobs"
	"github.com/noah-isme/doc-review-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/doc-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/doc-review-api/pkg/middleware/requestid"
	"github.com/noah-isme/doc-review-api/pkg/storage"
)

// @title Document Review API
// @version 1.0.0
// @description Document submission and review service for academic deliverables
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	uploadSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	loadRepo := repository.NewTeachingLoadRepository(db)
	typeRepo := repository.NewDocumentTypeRepository(db)
	deliverableRepo := repository.NewDeliverableRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr,
		redisClient != nil && cfg.Dashboard.Enabled)

	authSvc := service.NewAuthService(userRepo, profileRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "doc-review-api",
		Audience:           []string{"doc-review-api"},
	})
	userSvc := service.NewUserService(userRepo, profileRepo, userRepo, nil, logr)
	periodSvc := service.NewPeriodService(periodRepo, userRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	loadSvc := service.NewTeachingLoadService(loadRepo, courseRepo, userRepo, periodRepo, userRepo, nil, logr)
	typeSvc := service.NewDocumentTypeService(typeRepo, nil, logr)
	deliverableSvc := service.NewDeliverableService(deliverableRepo, typeRepo, periodRepo, userRepo, nil, logr)
	documentSvc := service.NewDocumentService(documentRepo, deliverableRepo, typeRepo, loadRepo,
		uploadStore, uploadSigner, userRepo, logr, service.DocumentServiceConfig{
			MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
			APIPrefix:   cfg.APIPrefix,
		})
	obligationSvc := service.NewObligationService(deliverableRepo, typeRepo, loadRepo, documentRepo, periodRepo, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Documents:   documentRepo,
		Periods:     periodRepo,
		Loads:       loadRepo,
		Obligations: obligationSvc,
		Cache:       cacheSvc,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(documentRepo, loadRepo, obligationSvc, reportStore,
			reportSigner, service.ExportConfig{
				APIPrefix: cfg.APIPrefix,
				ResultTTL: cfg.Reports.SignedURLTTL,
			}, logr, nil, nil)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc = service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	// Handlers.
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	periodHandler := handler.NewPeriodHandler(periodSvc)
	catalogHandler := handler.NewCatalogHandler(courseSvc)
	loadHandler := handler.NewTeachingLoadHandler(loadSvc)
	typeHandler := handler.NewDocumentTypeHandler(typeSvc)
	deliverableHandler := handler.NewDeliverableHandler(deliverableSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc, metricsSvc, dashboardSvc)
	obligationHandler := handler.NewObligationHandler(obligationSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

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

	protected := api.Group("", middleware.JWT(authSvc))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.GET("/auth/me", authHandler.Me)

	vicerrector := middleware.RequireRoles(models.RoleVicerrector)

	protected.POST("/users", vicerrector, userHandler.Create)
	protected.GET("/users", vicerrector, userHandler.List)
	protected.GET("/users/:id", middleware.RBAC(string(models.RoleVicerrector), "SELF"), userHandler.Get)
	protected.DELETE("/users/:id", vicerrector, userHandler.Deactivate)

	protected.GET("/periods", periodHandler.List)
	protected.GET("/periods/active", periodHandler.GetActive)
	protected.GET("/periods/:id", periodHandler.Get)
	protected.POST("/periods", vicerrector, periodHandler.Create)
	protected.POST("/periods/:id/activate", vicerrector,
		middleware.Audit(userRepo, "period.activate", "periods"), periodHandler.Activate)
	protected.GET("/periods/:id/stages", periodHandler.ListStages)
	protected.POST("/periods/:id/stages", vicerrector, periodHandler.CreateStage)
	protected.GET("/periods/:id/loads", vicerrector, loadHandler.ListByPeriod)

	protected.GET("/courses", catalogHandler.ListCourses)
	protected.POST("/courses", vicerrector, catalogHandler.CreateCourse)
	protected.GET("/subjects", catalogHandler.ListSubjects)
	protected.POST("/subjects", vicerrector, catalogHandler.CreateSubject)
	protected.GET("/course-subjects", catalogHandler.ListPairs)
	protected.POST("/course-subjects", vicerrector, catalogHandler.CreatePair)

	protected.POST("/teaching-loads", vicerrector, loadHandler.Assign)
	protected.DELETE("/teaching-loads/:id", vicerrector, loadHandler.Remove)
	protected.GET("/teachers/:id/loads", loadHandler.ListByTeacher)
	protected.GET("/teachers/:id/obligations", obligationHandler.ForTeacher)

	protected.GET("/document-types", typeHandler.List)
	protected.GET("/document-types/:id", typeHandler.Get)
	protected.POST("/document-types", vicerrector, typeHandler.Create)
	protected.PUT("/document-types/:id", vicerrector, typeHandler.Update)

	protected.GET("/deliverables", deliverableHandler.List)
	protected.POST("/deliverables", vicerrector, deliverableHandler.Create)
	protected.PUT("/deliverables/:id", vicerrector, deliverableHandler.Update)
	protected.DELETE("/deliverables/:id", vicerrector, deliverableHandler.Remove)

	protected.POST("/documents", documentHandler.Upload)
	protected.GET("/documents", documentHandler.List)
	protected.GET("/documents/pending", obligationHandler.Mine)
	protected.GET("/documents/:id", documentHandler.Get)
	protected.PATCH("/documents/:id/status", vicerrector, documentHandler.Review)
	protected.GET("/documents/:id/download", documentHandler.Download)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard/summary", dashboardHandler.Summary)
		protected.GET("/dashboard/compliance", dashboardHandler.Compliance)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		protected.POST("/reports", reportHandler.Create)
		protected.GET("/reports/:id", reportHandler.Status)
		// Download carries its own signed token; no session required.
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.Bool("reports", cfg.Reports.Enabled),
		zap.Bool("dashboard", cfg.Dashboard.Enabled),
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
