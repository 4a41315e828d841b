package main

import (
	"context"
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

	_ "github.com/zahraAghaee77/School-Management-API/api/swagger"
	"github.com/zahraAghaee77/School-Management-API/internal/authz"
	"github.com/zahraAghaee77/School-Management-API/internal/handler"
	"github.com/zahraAghaee77/School-Management-API/internal/middleware"
	"github.com/zahraAghaee77/School-Management-API/internal/models"
	"github.com/zahraAghaee77/School-Management-API/internal/repository"
	"github.com/zahraAghaee77/School-Management-API/internal/service"
	"github.com/zahraAghaee77/School-Management-API/pkg/cache"
	"github.com/zahraAghaee77/School-Management-API/pkg/config"
	"github.com/zahraAghaee77/School-Management-API/pkg/database"
	"github.com/zahraAghaee77/School-Management-API/pkg/logger"
	corsmiddleware "github.com/zahraAghaee77/School-Management-API/pkg/middleware/cors"
	reqidmiddleware "github.com/zahraAghaee77/School-Management-API/pkg/middleware/requestid"
	"github.com/zahraAghaee77/School-Management-API/pkg/storage"
)

// @title School Management API
// @version 1.0.0
// @description Role-based backend for schools, classes, assignments and announcements
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, news feed caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare uploads directory", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	classRepo := repository.NewClassRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	solutionRepo := repository.NewSolutionRepository(db)
	newsRepo := repository.NewNewsRepository(db)
	if !cfg.News.CacheEnabled {
		redisClient = nil
	}
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr).WithMetrics(metricsSvc)

	engine := authz.NewEngine(repository.NewMembership(classRepo, schoolRepo), authz.SystemClock{})
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-management-api",
		SingleSession:      true,
	})
	userSvc := service.NewUserService(userRepo, lessonRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, userRepo, engine, validate, logr)
	classSvc := service.NewClassService(classRepo, userRepo, schoolRepo, lessonRepo, engine, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, classRepo, userRepo, engine, validate, logr)
	solutionSvc := service.NewSolutionService(solutionRepo, assignmentRepo, classRepo, userRepo, engine, validate, logr)
	newsSvc := service.NewNewsService(newsRepo, classRepo, schoolRepo, cacheRepo, cfg.News.CacheTTL, engine, validate, logr)
	exportSvc := service.NewExportService(assignmentRepo, classRepo, solutionRepo, engine, logr)

	actors := handler.NewActorResolver(schoolRepo)
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc, actors)
	classHandler := handler.NewClassHandler(classSvc, actors)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, exportSvc, actors)
	solutionHandler := handler.NewSolutionHandler(solutionSvc, actors)
	newsHandler := handler.NewNewsHandler(newsSvc, actors)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	uploadHandler := handler.NewUploadHandler(uploadStore, cfg.Uploads.MaxFileSizeBytes)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	users := api.Group("/users")
	users.POST("/register", userHandler.Register)
	users.PATCH("/me", middleware.JWT(authSvc), userHandler.UpdateProfile)
	users.GET("/me/lessons", middleware.JWT(authSvc), userHandler.MyLessons)
	usersAdmin := users.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	usersAdmin.GET("", userHandler.List)
	usersAdmin.POST("", userHandler.Create)
	usersAdmin.GET("/:id", userHandler.Get)
	usersAdmin.DELETE("/:id", userHandler.Delete)
	usersAdmin.POST("/:id/activate", middleware.Audit(userRepo, models.AuditActionUserActivate, "user"), userHandler.Activate)

	schools := api.Group("/schools", middleware.JWT(authSvc))
	schools.GET("", schoolHandler.List)
	schools.GET("/nearby", schoolHandler.Nearby)
	schools.GET("/:id", schoolHandler.Get)
	schools.GET("/:id/teachers", schoolHandler.ListTeachers)
	schools.GET("/:id/students", schoolHandler.ListStudents)
	schools.GET("/:id/classes", schoolHandler.ListClasses)
	schools.GET("/:id/lessons", schoolHandler.ListLessons)
	schoolsAdmin := schools.Group("", middleware.RequireRoles(models.RoleAdmin))
	schoolsAdmin.POST("", schoolHandler.Create)
	schoolsAdmin.PUT("/:id", schoolHandler.Update)
	schoolsAdmin.DELETE("/:id", schoolHandler.Delete)

	classes := api.Group("/classes", middleware.JWT(authSvc))
	classes.GET("", classHandler.List)
	classes.GET("/:id", classHandler.Get)
	classes.GET("/:id/students", classHandler.ListStudents)
	classes.POST("/:id/students", classHandler.AddStudent)
	classes.DELETE("/:id/students", classHandler.RemoveStudent)
	classes.GET("/:id/lessons", classHandler.ListLessons)
	classes.POST("/:id/lessons", classHandler.AddLesson)
	classesAdmin := classes.Group("", middleware.RequireRoles(models.RoleAdmin))
	classesAdmin.POST("", classHandler.Create)
	classesAdmin.PUT("/:id", classHandler.Update)
	classesAdmin.DELETE("/:id", classHandler.Delete)

	assignments := api.Group("/assignments", middleware.JWT(authSvc))
	assignments.GET("", assignmentHandler.List)
	assignments.GET("/:id", assignmentHandler.Get)
	assignments.POST("", assignmentHandler.Create)
	assignments.PUT("/:id", assignmentHandler.Update)
	assignments.POST("/:id/answer", assignmentHandler.AddAnswer)
	assignments.GET("/:id/grades/export", assignmentHandler.ExportGrades)
	assignments.POST("/:id/solutions", solutionHandler.Submit)
	assignments.GET("/:id/solutions", solutionHandler.ListByAssignment)

	solutions := api.Group("/solutions", middleware.JWT(authSvc))
	solutions.GET("", solutionHandler.List)
	solutions.GET("/:id", solutionHandler.Get)
	solutions.PUT("/:id", solutionHandler.Update)
	solutions.POST("/:id/grade", solutionHandler.Grade)

	news := api.Group("/news", middleware.JWT(authSvc))
	news.GET("", newsHandler.List)
	news.GET("/:id", newsHandler.Get)
	news.POST("", newsHandler.Create)
	news.PUT("/:id", newsHandler.Update)
	news.DELETE("/:id", newsHandler.Delete)

	uploads := api.Group("/uploads", middleware.JWT(authSvc))
	uploads.POST("", uploadHandler.Upload)
	uploads.GET("/:name", uploadHandler.Download)

	metrics := api.Group("/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	metrics.GET("/summary", metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
