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

	"github.com/bitfantasy/phase/internal/config"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/handler"
	"github.com/bitfantasy/phase/internal/edms/repository"
	"github.com/bitfantasy/phase/internal/edms/service"
	"github.com/bitfantasy/phase/internal/edms/sse"
	"github.com/bitfantasy/phase/internal/edms/worker"
	"github.com/bitfantasy/phase/internal/middleware"
	"github.com/bitfantasy/phase/internal/shared/queue"
	"github.com/bitfantasy/phase/internal/shared/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting phase service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database, cfg.Log.Level)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(entity.Models()...); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	ctx := context.Background()

	// 文件存储
	store, err := initStorage(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Failed to init storage", zap.Error(err))
	}

	// 任务队列
	var taskQueue queue.Queue
	if cfg.Worker.UseRedis {
		rdb := initRedis(cfg.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		taskQueue = queue.NewRedisQueue(rdb, cfg.Worker.QueueKey)
		zapLogger.Info("Using redis task queue", zap.String("key", cfg.Worker.QueueKey))
	} else {
		taskQueue = queue.NewMemoryQueue(cfg.Worker.BufferSize)
		zapLogger.Info("Using in-memory task queue", zap.Int("buffer", cfg.Worker.BufferSize))
	}

	hub := sse.NewHub(zapLogger)

	services := service.NewServices(service.Deps{
		Repos:    repository.NewRepositories(db),
		Store:    store,
		Queue:    taskQueue,
		Notifier: hub,
		Config:   cfg,
		Logger:   zapLogger,
	})
	handlers := handler.NewHandlers(services, hub)

	// 后台任务
	pool := worker.NewPool(taskQueue, cfg.Worker.Concurrency, zapLogger)
	pool.Handle(queue.KindImport, services.Import)
	pool.Handle(queue.KindExport, services.Export)
	pool.Every(worker.Periodic{
		Name:     "review_overdue",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			n, err := services.Review.MarkOverdue(ctx)
			if n > 0 {
				zapLogger.Info("Marked overdue reviews", zap.Int64("count", n))
			}
			return err
		},
	})
	pool.Start(ctx)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.Recovery(zapLogger))
	router.Use(middleware.CORS())

	registerRoutes(router, handlers, db, cfg)

	// 创建HTTP服务器，SSE 长连接需要 WriteTimeout 为 0
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	taskQueue.Close()
	pool.Stop()

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig, level string) (*gorm.DB, error) {
	logLevel := logger.Warn
	if level == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// initStorage 配置了 MinIO 时用 MinIO，否则用本地目录
func initStorage(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	if cfg.MinIO.Endpoint != "" {
		return storage.NewMinioStore(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
	}
	return storage.NewLocalStore(cfg.Storage.LocalRoot)
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	// API v1，全部需要认证
	v1 := r.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))
	h.Register(v1)
}
