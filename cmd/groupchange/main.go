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

	"github.com/bitfantasy/groupchange/internal/config"
	"github.com/bitfantasy/groupchange/internal/middleware"
	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/bitfantasy/groupchange/internal/params/handler"
	"github.com/bitfantasy/groupchange/internal/params/journal"
	"github.com/bitfantasy/groupchange/internal/params/repository"
	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/bitfantasy/groupchange/internal/params/sse"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = handler.ServiceVersion
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

	zapLogger.Info("Starting groupchange service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("hostname", config.GetEnvOrDefault("HOSTNAME", "unknown")),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database, cfg.Log)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		// 仅用于开发库，生产库表结构由订单系统维护
		if err := db.AutoMigrate(
			&entity.Contragent{},
			&entity.Customer{},
			&entity.Order{},
			&entity.OrderItem{},
			&entity.OrderItemAdd{},
			&entity.StructParam{},
			&entity.EnumItem{},
			&entity.ColorGroup{},
			&entity.Color{},
			&entity.AddParam{},
			&entity.ItemParam{},
		); err != nil {
			zapLogger.Warn("AutoMigrate warning", zap.Error(err))
		}
	}

	// 初始化仓库和服务
	sel := repository.FamilySelector{
		BreedMarker:    cfg.Catalog.BreedMarker,
		ColorParamType: cfg.Catalog.ColorParamType,
	}
	repos := repository.NewRepositories(db, sel, cfg.Catalog.ColorGroupIDs)
	services := service.NewServices(repos, cfg, zapLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	services.Rewrite.SetMetrics(service.NewMetrics(registry))

	hub := sse.NewHub(zapLogger)
	services.Rewrite.SetHub(hub)

	// Redis 改写日志（可选）
	if cfg.Redis.Host != "" {
		rdb := initRedis(cfg.Redis)
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis not reachable, rewrite journal will log failures", zap.Error(err))
		}
		cancel()
		services.Rewrite.SetJournal(journal.New(rdb, cfg.Redis.JournalSize))
	} else {
		zapLogger.Info("Redis not configured, rewrite journal disabled")
	}

	// MinIO 报表归档（可选）
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("Failed to init MinIO client, report archive disabled", zap.Error(err))
		} else {
			services.Report.SetObjectStore(minioClient, cfg.MinIO.Bucket)
		}
	}

	handlers := handler.NewHandlers(services, hub, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Log.Enable {
		router.Use(middleware.Logger(zapLogger))
	}
	router.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/events"})))

	handler.RegisterRoutes(router, handlers, handler.AuthConfig{
		Secret:       cfg.JWT.Secret,
		OperatorRole: cfg.JWT.OperatorRole,
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version, "build_time": BuildTime})
	})

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE 长连接
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if !cfg.Enable {
		return zap.NewNop(), nil
	}

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

func initDatabase(cfg config.DatabaseConfig, logCfg config.LogConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	// debug 级别输出 SQL
	level := logger.Warn
	if !logCfg.Enable {
		level = logger.Silent
	} else if logCfg.Level == "debug" {
		level = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
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
