package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-sis-api/api/swagger"
	"github.com/noah-isme/sma-sis-api/internal/handler"
	"github.com/noah-isme/sma-sis-api/internal/middleware"
	"github.com/noah-isme/sma-sis-api/internal/models"
	"github.com/noah-isme/sma-sis-api/internal/repository"
	"github.com/noah-isme/sma-sis-api/internal/service"
	"github.com/noah-isme/sma-sis-api/pkg/cache"
	"github.com/noah-isme/sma-sis-api/pkg/config"
	"github.com/noah-isme/sma-sis-api/pkg/database"
	"github.com/noah-isme/sma-sis-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-sis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-sis-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-sis-api/pkg/sequence"
)

// @title SMA SIS API
// @version 1.0.0
// @description Student information system core: fee ledger, exam marks and results
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, receipt numbering falls back to timestamps and merit lists are uncached", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	studentFeeRepo := repository.NewStudentFeeRepository(db)
	feePaymentRepo := repository.NewFeePaymentRepository(db)
	feeDiscountRepo := repository.NewFeeDiscountRepository(db)
	examRepo := repository.NewExamRepository(db)
	markRepo := repository.NewMarkRepository(db)
	resultRepo := repository.NewResultRepository(db)
	gradingRepo := repository.NewGradingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, 5*time.Minute, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-sis-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	feeSvc := service.NewFeeService(studentFeeRepo, feePaymentRepo, feeDiscountRepo, validate, logr)
	receipts := sequence.NewReceiptGenerator(redisClient, cfg.Receipts.Prefix)
	paymentSvc := service.NewPaymentService(studentFeeRepo, feePaymentRepo, feeDiscountRepo, receipts, metricsSvc, validate, logr)
	discountSvc := service.NewDiscountService(studentFeeRepo, feeDiscountRepo, validate, logr)
	examSvc := service.NewExamService(examRepo, validate, logr)
	markSvc := service.NewMarkService(markRepo, examRepo, resultRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, examRepo, markRepo, gradingRepo, metricsSvc, cacheSvc, validate, logr)
	gradingSvc := service.NewGradingService(gradingRepo, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	feeHandler := handler.NewFeeHandler(feeSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, discountSvc, cfg.Institution.Name)
	examHandler := handler.NewExamHandler(examSvc)
	markHandler := handler.NewMarkHandler(markSvc)
	resultHandler := handler.NewResultHandler(resultSvc)
	gradingHandler := handler.NewGradingHandler(gradingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	secured := api.Group("", middleware.JWT(authSvc))

	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	finance := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant)
	academic := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant, models.RoleTeacher)

	users := secured.Group("/users", admin)
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	students := secured.Group("/students")
	{
		students.GET("", staff, studentHandler.List)
		students.GET("/:id", staff, studentHandler.Get)
		students.POST("", admin, studentHandler.Create)
		students.PUT("/:id", admin, studentHandler.Update)
		students.DELETE("/:id", admin, studentHandler.Delete)
	}

	fees := secured.Group("/fees", finance)
	{
		fees.POST("", feeHandler.Assign)
		fees.GET("", feeHandler.List)
		fees.GET("/:id/ledger", feeHandler.Ledger)
		fees.POST("/:id/reconcile", feeHandler.Reconcile)
		fees.GET("/collections.csv", feeHandler.Collections)
		fees.GET("/:id/receipts/:receipt", paymentHandler.Receipt)
	}

	secured.POST("/payments", finance,
		middleware.Audit(userRepo, models.AuditActionPaymentCollect, "fee_payments"),
		paymentHandler.Collect)
	secured.POST("/discounts", admin,
		middleware.Audit(userRepo, models.AuditActionDiscountApply, "fee_discounts"),
		paymentHandler.Discount)

	exams := secured.Group("/exams")
	{
		exams.POST("", admin, examHandler.Create)
		exams.GET("/:id", academic, examHandler.Get)
		exams.POST("/:id/subjects", admin, examHandler.AddSubject)
		exams.GET("/:id/subjects", academic, examHandler.ListSubjects)

		exams.POST("/:id/results/compute", admin, resultHandler.ComputeClass)
		exams.POST("/:id/results/:studentId/compute", admin, resultHandler.Compute)
		exams.GET("/:id/results/:studentId", academic, resultHandler.Get)
		exams.GET("/:id/merit-list", academic, resultHandler.MeritList)
		exams.POST("/:id/results/publish", admin,
			middleware.Audit(userRepo, models.AuditActionResultPublish, "results"),
			resultHandler.Publish)
	}

	secured.PUT("/marks", academic,
		middleware.Audit(userRepo, models.AuditActionMarksEntry, "marks"),
		markHandler.Record)
	secured.PUT("/marks/bulk", academic,
		middleware.Audit(userRepo, models.AuditActionMarksEntry, "marks"),
		markHandler.Bulk)
	secured.GET("/exam-subjects/:id/marks", academic, markHandler.List)
	secured.GET("/exam-subjects/:id/statistics", academic, markHandler.Statistics)

	grading := secured.Group("/grading-systems", admin)
	{
		grading.POST("", gradingHandler.Create)
		grading.GET("", gradingHandler.List)
		grading.GET("/:id", gradingHandler.Get)
		grading.POST("/:id/activate", gradingHandler.Activate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
