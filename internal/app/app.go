package app

import (
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/controller"
	"edu_copilot_backend/internal/llm"
	"edu_copilot_backend/internal/planner"
	"edu_copilot_backend/internal/ranking"
	"edu_copilot_backend/internal/repository"
	"edu_copilot_backend/internal/retrieval"
	"edu_copilot_backend/internal/search"
	"edu_copilot_backend/internal/service"
	"edu_copilot_backend/pkg/configwatcher"
	"edu_copilot_backend/pkg/database"
	"edu_copilot_backend/pkg/logger"
	"edu_copilot_backend/pkg/monitoring"
	"edu_copilot_backend/pkg/security"
	"edu_copilot_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
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
	repos           *repositories
	tracer          *sdktrace.TracerProvider
	cron            *cron.Cron
	stop            chan struct{}
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user    *repository.UserRepository
	profile *repository.ProfileRepository
	plan    *repository.LearningPlanRepository
}

type services struct {
	auth           *service.AuthService
	profile        *service.ProfileService
	recommendation *service.RecommendationService
	plan           *service.LearningPlanService
	storage        *service.StorageService
	ranker         *ranking.Ranker
	assembler      *planner.Assembler
}

type controllers struct {
	auth           *controller.AuthController
	profile        *controller.ProfileController
	recommendation *controller.RecommendationController
	plan           *controller.LearningPlanController
	health         *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:    repository.NewUserRepository(db),
		profile: repository.NewProfileRepository(db),
		plan:    repository.NewLearningPlanRepository(db),
	}
}

func (a *App) initServices(ctx context.Context, repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	openai := llm.NewClient(cfg.AzureOpenAI, cfg.Breaker)
	embedder := llm.NewCachedEmbedder(openai, rdb, cfg.Retrieval.EmbeddingCacheTTL)
	searchClient := search.NewClient(cfg.AzureSearch, cfg.Breaker)

	retriever := retrieval.NewRetriever(embedder, searchClient, cfg.Retrieval, cfg.Ranking.Bands)
	s.ranker = ranking.NewRanker(&cfg.Ranking)
	s.assembler = planner.NewAssembler(openai, cfg.Planner.ContentIDPolicy)

	s.storage = service.NewStorageService(ctx, cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.profile = service.NewProfileService(repos.profile)
	s.profile.Index = searchClient.ForIndex(cfg.AzureSearch.ProfileIndex)
	s.recommendation = service.NewRecommendationService(s.profile, retriever, s.ranker, rdb, cfg.Retrieval.CacheTTL)
	s.plan = service.NewLearningPlanService(
		repos.plan,
		s.profile,
		s.recommendation,
		s.assembler,
		s.storage,
		searchClient.ForIndex(cfg.AzureSearch.PlanIndex),
		cfg,
	)

	// 热加载：排序权重与 content_id 策略
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.ranker.SetWeights(&newCfg.Ranking)
		s.assembler.SetContentIDPolicy(newCfg.Planner.ContentIDPolicy)
	})
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:           controller.NewAuthController(s.auth),
		profile:        controller.NewProfileController(s.profile),
		recommendation: controller.NewRecommendationController(s.recommendation),
		plan:           controller.NewLearningPlanController(s.plan),
		health:         controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(security.NewIPLimiter(cfg.RateLimit.MaxRequests, window), a.stop))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 配置热加载与夜间推荐缓存预热
func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	go func() {
		err := configwatcher.WatchConfig(ctx, filepath.Join(a.Config.ConfigDir, "config.yaml"), func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
			logger.Log.Info("Configuration reloaded")
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	if !a.Config.Scheduler.Enabled {
		return
	}

	a.cron = cron.New()
	_, err := a.cron.AddFunc(a.Config.Scheduler.WarmupSpec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Hour)
		defer cancel()

		start := time.Now()
		warmed, err := s.recommendation.Warmup(jobCtx, a.repos.profile, a.Config.Scheduler.WarmupSubjects)
		if err != nil {
			logger.Log.Error("Recommendation warmup failed", zap.Int("warmed", warmed), zap.Error(err))
			return
		}
		logger.Log.Info("Recommendation warmup finished",
			zap.Int("warmed", warmed),
			zap.Duration("elapsed", time.Since(start)))
	})
	if err != nil {
		logger.Log.Error("Invalid warmup schedule", zap.String("spec", a.Config.Scheduler.WarmupSpec), zap.Error(err))
		return
	}
	a.cron.Start()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Database migration failed", zap.Error(err))
		}
		logger.Log.Info("Database migration completed")
	}

	app := &App{
		Config: cfg,
		DB:     db,
		stop:   make(chan struct{}),
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, caches disabled until it recovers", zap.Error(err))
	}
	app.Redis = rdb

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.repos = app.initRepositories(db)
	app.services = app.initServices(ctx, app.repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, app.repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(ctx, app.services)
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放外部连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	close(a.stop)

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
