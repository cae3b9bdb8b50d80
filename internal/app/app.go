package app

import (
	"classhub_backend/internal/config"
	"classhub_backend/internal/controller"
	"classhub_backend/internal/repository"
	inmemdb "classhub_backend/internal/repository/inmem"
	"classhub_backend/internal/service"
	"classhub_backend/pkg/configwatcher"
	"classhub_backend/pkg/database"
	"classhub_backend/pkg/logger"
	"classhub_backend/pkg/monitoring"
	"classhub_backend/pkg/security"
	"classhub_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	ctx             context.Context
	cancel          context.CancelFunc
}

type repositories struct {
	user         service.UserStore
	quiz         service.QuizStore
	attempt      service.AttemptStore
	assignment   service.AssignmentStore
	submission   service.SubmissionStore
	module       service.ModuleStore
	liveClass    service.LiveClassStore
	enrollment   service.EnrollmentStore
	notification service.NotificationStore
}

type services struct {
	auth         *service.AuthService
	storage      *service.StorageService
	quiz         *service.QuizService
	attempt      *service.QuizAttemptService
	assignment   *service.AssignmentService
	module       *service.ModuleService
	liveClass    *service.LiveClassService
	enrollment   *service.EnrollmentService
	notification *service.NotificationService
	notifier     *service.Notifier
	ai           *service.AIService
	hub          *service.ClassroomHub
	scheduler    *service.Scheduler
}

type controllers struct {
	auth         *controller.AuthController
	quiz         *controller.QuizController
	assignment   *controller.AssignmentController
	module       *controller.ModuleController
	liveClass    *controller.LiveClassController
	enrollment   *controller.EnrollmentController
	notification *controller.NotificationController
	ai           *controller.AIController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// initRepositories uses gorm when a database is open and the in-memory store otherwise.
func (a *App) initRepositories(db *gorm.DB) *repositories {
	if db == nil {
		mem := inmemdb.NewStores(inmemdb.NewDB())
		return &repositories{
			user:         mem.Users,
			quiz:         mem.Quizzes,
			attempt:      mem.Attempts,
			assignment:   mem.Assignments,
			submission:   mem.Submissions,
			module:       mem.Modules,
			liveClass:    mem.LiveClasses,
			enrollment:   mem.Enrollments,
			notification: mem.Notifications,
		}
	}
	return &repositories{
		user:         repository.NewUserRepository(db),
		quiz:         repository.NewQuizRepository(db),
		attempt:      repository.NewQuizAttemptRepository(db),
		assignment:   repository.NewAssignmentRepository(db),
		submission:   repository.NewSubmissionRepository(db),
		module:       repository.NewModuleRepository(db),
		liveClass:    repository.NewLiveClassRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	s.hub = service.NewClassroomHub(rdb)
	go s.hub.Run(a.ctx)

	s.notifier = service.NewNotifier(repos.notification, repos.user, service.NewMailer(cfg.Mail), s.hub)
	s.notification = service.NewNotificationService(repos.notification)

	s.quiz = service.NewQuizService(repos.quiz, repos.enrollment, s.notifier)
	s.attempt = service.NewQuizAttemptService(repos.quiz, repos.attempt)
	s.assignment = service.NewAssignmentService(repos.assignment, repos.submission, repos.enrollment, s.storage, s.notifier)
	s.module = service.NewModuleService(repos.module, s.storage)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.module, repos.liveClass)

	// a nil *ZoomClient must stay a nil interface
	var meetings service.MeetingProvider
	if zoom := service.NewZoomClient(cfg.Meeting); zoom != nil {
		meetings = zoom
	}
	grace := time.Duration(cfg.Scheduler.LiveClassGraceMins) * time.Minute
	s.liveClass = service.NewLiveClassService(repos.liveClass, repos.enrollment, meetings, s.notifier, grace)

	s.ai = service.NewAIService(cfg.AI)

	interval := time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second
	s.scheduler = service.NewScheduler(s.quiz, s.assignment, s.liveClass, interval)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		quiz:         controller.NewQuizController(s.quiz, s.attempt),
		assignment:   controller.NewAssignmentController(s.assignment),
		module:       controller.NewModuleController(s.module),
		liveClass:    controller.NewLiveClassController(s.liveClass, s.hub),
		enrollment:   controller.NewEnrollmentController(s.enrollment),
		notification: controller.NewNotificationController(s.notification),
		ai:           controller.NewAIController(s.ai),
		health:       controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	go s.scheduler.Run(a.ctx)

	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.limiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})

	err := configwatcher.Watch(a.ctx, "configs", func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	})
	if err != nil {
		logger.Log.Warn("config watcher disabled", zap.Error(err))
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, ctx: ctx, cancel: cancel}

	if cfg.Database.Driver == "memory" {
		logger.Log.Warn("using the in-memory store, data is lost on restart")
	} else {
		db, err := database.InitDB(cfg)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}
		app.DB = db
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(app.DB)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, app.DB)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("classhub", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, os.ModePerm)
		}
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// stops the scheduler, the config watcher and the classroom hub
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
