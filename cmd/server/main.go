package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"medservice-console/config"
	"medservice-console/internal/api/handler"
	"medservice-console/internal/api/middleware"
	"medservice-console/internal/api/router"
	"medservice-console/internal/metrics"
	"medservice-console/internal/permission"
	"medservice-console/internal/repository"
	"medservice-console/internal/resource"
	"medservice-console/internal/service"
	"medservice-console/pkg/apiclient"
	"medservice-console/pkg/database"
	"medservice-console/pkg/jwt"
	applogger "medservice-console/pkg/logger"
	"medservice-console/pkg/redis"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "medconsole",
		Short:        "Medical equipment service records console",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认 ./config/config.yaml）")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Audit log schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(func(sqlDB *sql.DB, logger *zap.Logger) error {
				return database.RunMigrations(sqlDB, logger)
			})
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withSQLDB(func(sqlDB *sql.DB, logger *zap.Logger) error {
				return database.RollbackMigrations(sqlDB, steps, logger)
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	return cmd
}

// withSQLDB 加载配置并连接数据库后执行 fn
func withSQLDB(fn func(sqlDB *sql.DB, logger *zap.Logger) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlDB, logger)
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}

func runServer() error {
	// 1. 加载配置与日志
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2. 连接数据库（可选：失败时审计日志不可用）
	var repo *repository.Repository
	db, err := openAuditDB(cfg, logger)
	if err != nil {
		logger.Warn("数据库不可用，审计日志将不会写入", zap.Error(err))
	} else {
		repo = repository.NewRepository(db)
	}

	// 3. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	// 接口字段只在连接成功时赋值，避免出现非 nil 接口包裹 nil 指针
	var (
		cache   service.Cache
		revoker service.Revoker
		limiter middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，会话吊销、选项缓存与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		cache, revoker, limiter = rdb, rdb, rdb
	}

	// 4. 指标、上游客户端与会话签名
	m := metrics.New()
	upstream := apiclient.New(&cfg.Upstream, logger, apiclient.WithObserver(m))
	jwtMgr := jwt.NewManager(&cfg.Auth)
	gate := permission.NewGate(cfg.Auth.BypassRoles)
	registry := resource.Default()

	// 5. 依赖注入: Repository → Service → Handler
	svc := service.NewService(service.Deps{
		Config:   cfg,
		Repo:     repo,
		Upstream: upstream,
		Cache:    cache,
		Revoker:  revoker,
		JWT:      jwtMgr,
		Gate:     gate,
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
	})
	h := handler.NewHandler(cfg, svc, m, logger)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		Sessions: svc.Session,
		Gate:     gate,
		Registry: registry,
		Limiter:  limiter,
		Metrics:  m,
	}, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	// 导出与实时列表连接耗时较长，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP 服务器异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
	return nil
}

// openAuditDB 连接审计库并执行迁移
func openAuditDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}
