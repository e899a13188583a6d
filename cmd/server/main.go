package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/config"
	"github.com/dix105/calendly-clone/internal/api/handler"
	"github.com/dix105/calendly-clone/internal/api/middleware"
	"github.com/dix105/calendly-clone/internal/api/router"
	"github.com/dix105/calendly-clone/internal/calendar"
	"github.com/dix105/calendly-clone/internal/job"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	"github.com/dix105/calendly-clone/internal/service"
	"github.com/dix105/calendly-clone/pkg/database"
	"github.com/dix105/calendly-clone/pkg/jwt"
	applogger "github.com/dix105/calendly-clone/pkg/logger"
	"github.com/dix105/calendly-clone/pkg/redis"
	"github.com/dix105/calendly-clone/pkg/validate"
)

func main() {
	// 0. 本地开发读取 .env，文件不存在时忽略
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("CAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时关闭时段缓存与预约限流，不中断启动）
	var (
		cache   service.SlotCache
		limiter middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，时段缓存与预约限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		cache = rdb
		limiter = rdb
	}

	// 5. 请求校验与 JWT
	if err := validate.Register(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → 外部日历 → Service → Handler
	repo := repository.NewRepository(db)

	busySrc := calendar.NewMultiSource(repo.Calendar, map[string]calendar.Provider{
		model.CalendarProviderICS:    calendar.NewICSProvider(&http.Client{Timeout: cfg.Calendar.FetchTimeout}, cfg.Calendar.MaxFeedBytes),
		model.CalendarProviderGoogle: calendar.NewGoogleProvider(cfg.Calendar.GoogleClientID, cfg.Calendar.GoogleClientSecret),
	}, cfg.Calendar.FetchTimeout, logger)

	svc := service.NewService(cfg, repo, busySrc, cache, logger)
	h := handler.NewHandler(svc)

	// 7. 过期占位清理
	sweeper, err := job.NewExpirySweeper(cfg.Booking.ExpirySweepCron, svc.Booking, cfg.Booking.ReserveTimeout, logger)
	if err != nil {
		logger.Fatal("初始化过期清理任务失败", zap.Error(err))
	}
	sweeper.Start()

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sweeper.Stop(ctx)

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
