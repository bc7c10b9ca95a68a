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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusops/timetable-api/api/swagger"
	"github.com/campusops/timetable-api/internal/handler"
	"github.com/campusops/timetable-api/internal/middleware"
	"github.com/campusops/timetable-api/internal/repository"
	"github.com/campusops/timetable-api/internal/service"
	"github.com/campusops/timetable-api/internal/timetable"
	"github.com/campusops/timetable-api/pkg/cache"
	"github.com/campusops/timetable-api/pkg/config"
	"github.com/campusops/timetable-api/pkg/database"
	"github.com/campusops/timetable-api/pkg/export"
	"github.com/campusops/timetable-api/pkg/jobs"
	"github.com/campusops/timetable-api/pkg/logger"
	corsmiddleware "github.com/campusops/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Academic scheduling service with conflict detection and resolution.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(ctx, db, cfg.Database.MigrationDir); err != nil {
		logr.Sugar().Fatalw("migrations failed", "error", err)
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer client.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(client, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.TimetableCacheTTL, logr, true)
	}

	roomRepo := repository.NewRoomRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	conflictRepo := repository.NewConflictRepository(db)

	capacity := timetable.NewValidator(cfg.Scheduling.TeacherUnitCap, cfg.Scheduling.RoomDailyCap)
	detectorOpts := timetable.DetectorOptions{
		SlotStepMin: cfg.Scheduling.SlotStepMinutes,
		DayEndMin:   cfg.Scheduling.DayEndMinute,
	}

	roomSvc := service.NewRoomService(roomRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, subjectRepo, capacity, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	conflictSvc := service.NewConflictService(conflictRepo, sectionRepo, roomRepo, teacherRepo, capacity, detectorOpts, logr).
		WithMetrics(metrics).
		WithCache(cacheSvc)

	detections := jobs.NewQueue("conflict-detection", func(ctx context.Context, _ jobs.Job) error {
		_, err := conflictSvc.Detect(ctx)
		return err
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	detections.Start(ctx)
	defer detections.Stop()

	sectionSvc := service.NewSectionService(sectionRepo, roomRepo, teacherRepo, subjectRepo, capacity, nil, logr).
		WithCache(cacheSvc).
		WithDetectionQueue(detections)
	timetableSvc := service.NewTimetableService(sectionRepo, logr).
		WithCache(cacheSvc, cfg.Scheduling.TimetableCacheTTL)
	exportSvc := service.NewExportService(roomRepo, teacherRepo, subjectRepo, sectionRepo,
		export.NewCSVExporter(), export.NewPDFExporter(),
		service.ExportOptions{PDFTitle: cfg.Export.PDFTitle, PDFFooter: cfg.Export.PDFFooter}, logr)
	importSvc := service.NewImportService(sectionRepo, roomRepo, teacherRepo, cfg.Import.MaxRows, logr)

	rooms := handler.NewRoomHandler(roomSvc)
	teachers := handler.NewTeacherHandler(teacherSvc)
	subjects := handler.NewSubjectHandler(subjectSvc)
	sections := handler.NewSectionHandler(sectionSvc, conflictSvc)
	conflicts := handler.NewConflictHandler(conflictSvc)
	timetables := handler.NewTimetableHandler(timetableSvc)
	exports := handler.NewExportHandler(exportSvc)
	imports := handler.NewImportHandler(importSvc, cfg.Import.MaxUploadBytes)
	observability := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", observability.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", observability.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/rooms", rooms.List)
		api.POST("/rooms", rooms.Create)
		api.GET("/rooms/:id", rooms.Get)
		api.PUT("/rooms/:id", rooms.Update)
		api.PATCH("/rooms/:id/toggle", rooms.ToggleStatus)
		api.DELETE("/rooms/:id", rooms.Delete)

		api.GET("/teachers", teachers.List)
		api.POST("/teachers", teachers.Create)
		api.GET("/teachers/:id", teachers.Get)
		api.PUT("/teachers/:id", teachers.Update)
		api.PATCH("/teachers/:id/toggle", teachers.ToggleStatus)
		api.POST("/teachers/:id/subjects/:subjectId", teachers.AssignSubject)
		api.DELETE("/teachers/:id/subjects/:subjectId", teachers.UnassignSubject)
		api.DELETE("/teachers/:id", teachers.Delete)

		api.GET("/subjects", subjects.List)
		api.POST("/subjects", subjects.Create)
		api.GET("/subjects/:id", subjects.Get)
		api.PUT("/subjects/:id", subjects.Update)
		api.PATCH("/subjects/:id/toggle", subjects.ToggleStatus)
		api.DELETE("/subjects/:id", subjects.Delete)

		api.GET("/sections", sections.List)
		api.POST("/sections", sections.Create)
		api.GET("/sections/:id", sections.Get)
		api.PUT("/sections/:id", sections.Update)
		api.PATCH("/sections/:id/toggle", sections.ToggleStatus)
		api.GET("/sections/:id/conflicts", sections.CheckConflicts)
		api.DELETE("/sections/:id", sections.Delete)

		api.POST("/conflicts/detect", conflicts.Detect)
		api.GET("/conflicts", conflicts.List)
		api.GET("/conflicts/:id", conflicts.Get)
		api.POST("/conflicts/:id/resolve", conflicts.Resolve)

		api.GET("/timetable", timetables.Week)
		api.GET("/stats", observability.Stats)

		api.GET("/exports/rooms.csv", exports.Rooms)
		api.GET("/exports/teachers.csv", exports.Teachers)
		api.GET("/exports/subjects.csv", exports.Subjects)
		api.GET("/exports/sections.csv", exports.Sections)
		api.GET("/exports/timetable.pdf", exports.Timetable)

		api.POST("/imports/sections", imports.Sections)
		api.POST("/imports/rooms", imports.Rooms)
		api.POST("/imports/teachers", imports.Teachers)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
