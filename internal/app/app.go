package app

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/controller"
	"bravolearn_backend/internal/repository"
	"bravolearn_backend/internal/service"
	"bravolearn_backend/pkg/configwatcher"
	"bravolearn_backend/pkg/database"
	"bravolearn_backend/pkg/logger"
	"bravolearn_backend/pkg/messaging"
	"bravolearn_backend/pkg/monitoring"
	"bravolearn_backend/pkg/security"
	"bravolearn_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
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
	Publisher       messaging.Publisher
	Services        *Services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	profile     *repository.ProfileRepository
	course      *repository.CourseRepository
	enrollment  *repository.EnrollmentRepository
	progress    *repository.ProgressRepository
	attempt     *repository.AttemptRepository
	achievement *repository.AchievementRepository
	catalog     *repository.CatalogRepository
}

// Services 供命令行工具复用
type Services struct {
	Auth        *service.AuthService
	Storage     *service.StorageService
	Course      *service.CourseService
	Lesson      *service.LessonService
	Achievement *service.AchievementService
	Leaderboard *service.LeaderboardService
	Profile     *service.ProfileService
	Catalog     *service.CatalogService
}

type controllers struct {
	auth        *controller.AuthController
	course      *controller.CourseController
	lesson      *controller.LessonController
	achievement *controller.AchievementController
	leaderboard *controller.LeaderboardController
	profile     *controller.ProfileController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		profile:     repository.NewProfileRepository(db),
		course:      repository.NewCourseRepository(db),
		enrollment:  repository.NewEnrollmentRepository(db),
		progress:    repository.NewProgressRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		achievement: repository.NewAchievementRepository(db),
		catalog:     repository.NewCatalogRepository(db),
	}
}

// NewServices 组装业务服务，rdb 和 publisher 均可为 nil
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher messaging.Publisher) (*Services, error) {
	policy, err := cfg.Progression.Policy()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Progression.Location()
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}

	repos := initRepositories(db)
	s := &Services{}

	s.Storage = service.NewStorageService(cfg)
	s.Auth = service.NewAuthService(db, repos.user, repos.profile, cfg)
	s.Achievement = service.NewAchievementService(repos.achievement, repos.progress, repos.enrollment, repos.profile)
	s.Course = service.NewCourseService(db, repos.course, repos.enrollment, repos.progress, s.Achievement, publisher)
	s.Lesson = service.NewLessonService(
		db,
		repos.course,
		repos.progress,
		repos.attempt,
		repos.profile,
		s.Course,
		s.Achievement,
		service.NewCompletionLocker(rdb),
		publisher,
		service.LessonServiceOptions{
			Policy:   policy,
			Location: loc,
			LockTTL:  cfg.Progression.CompletionLockTTL(),
		},
	)
	s.Leaderboard = service.NewLeaderboardService(repos.profile)
	s.Profile = service.NewProfileService(repos.user, repos.profile, repos.progress, repos.enrollment, s.Achievement, s.Leaderboard, s.Storage)
	s.Catalog = service.NewCatalogService(db, repos.catalog, repos.achievement)

	return s, nil
}

func (a *App) initControllers(s *Services) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.Auth),
		course:      controller.NewCourseController(s.Course),
		lesson:      controller.NewLessonController(s.Lesson),
		achievement: controller.NewAchievementController(s.Achievement),
		leaderboard: controller.NewLeaderboardController(s.Leaderboard, a.Config.Progression.LeaderboardSize),
		profile:     controller.NewProfileController(s.Profile),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, "/metrics", "/swagger"))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OpenPublisher NATS 未启用时返回 NoopPublisher
func OpenPublisher(cfg *config.Config) (messaging.Publisher, error) {
	if !cfg.NATS.Enabled {
		return messaging.NoopPublisher{}, nil
	}
	return messaging.NewNatsPublisher(messaging.Config{
		URL:           cfg.NATS.URL,
		Timeout:       time.Duration(cfg.NATS.TimeoutSeconds) * time.Second,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	var (
		db  *gorm.DB
		err error
	)
	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		db, err = database.InitDB(&cfg.Database, cfg.Server.Mode)
	} else {
		db, err = database.Open(&cfg.Database, cfg.Server.Mode)
	}
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	publisher, err := OpenPublisher(cfg)
	if err != nil {
		// 事件投递是尽力而为，NATS 不可用时不阻止启动
		logger.Log.Error("Failed to connect to NATS, events disabled", zap.Error(err))
		publisher = messaging.NoopPublisher{}
	}
	app.Publisher = publisher

	services, err := NewServices(cfg, db, rdb, publisher)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.Services = services

	if cfg.SeedCatalog || cfg.Catalog.SeedOnStart {
		if _, err := services.Catalog.SeedFile(context.Background(), cfg.Catalog.SeedPath); err != nil {
			logger.Log.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	// 奖励策略支持热更新
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		policy, err := newCfg.Progression.Policy()
		if err != nil {
			logger.Log.Error("Ignoring invalid reward policy", zap.Error(err))
			return
		}
		services.Lesson.SetRewardPolicy(policy)
		logger.Log.Info("Reward policy updated", zap.String("policy", string(policy)))
	})

	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) watchConfig(ctx context.Context) {
	err := configwatcher.WatchConfig(ctx, "configs/config.yaml", func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}
}

func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.watchConfig(ctx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := a.Close(shutdownCtx); err != nil {
		logger.Log.Error("Failed to release resources", zap.Error(err))
	}
	logger.Log.Info("Server exiting")
}

// Close 释放外部连接
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
