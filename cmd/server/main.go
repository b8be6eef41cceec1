package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bpalanga/cryptoweb/internal/config"
	"github.com/bpalanga/cryptoweb/internal/database"
	"github.com/bpalanga/cryptoweb/internal/handler"
	"github.com/bpalanga/cryptoweb/internal/middleware"
	"github.com/bpalanga/cryptoweb/internal/redis"
	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	flags.String("config", "", "配置文件路径")
	flags.String("server.addr", ":8080", "监听地址")
	flags.String("server.mode", "debug", "运行模式：debug / release")
	_ = flags.Parse(os.Args[1:])

	// 加载配置
	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Server.Mode)
	if err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer logger.Sync()
	middleware.SetLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("配置无效", zap.Error(err))
	}

	// 初始化数据库连接
	if err := database.Init(&cfg.Database, cfg.Server.Mode == gin.DebugMode); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()
	logger.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("初始化 Redis 失败", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Redis 连接成功", zap.String("addr", cfg.Redis.Addr))

	// 自动迁移数据库表
	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(database.GetDB())
	logRepo := repository.NewAccessLogRepository(database.GetDB())

	// 票据服务
	tickets, err := ticket.NewService(&ticket.Config{
		Lifetime:         cfg.Ticket.Lifetime(),
		ServiceLifetime:  cfg.Ticket.ServiceLifetime(),
		RenewalThreshold: cfg.Ticket.RenewalThreshold(),
		Realm:            cfg.Ticket.Realm,
		Secret:           cfg.Ticket.Secret,
		Digest:           cfg.Ticket.Digest,
	}, nil, nil)
	if err != nil {
		logger.Fatal("初始化票据服务失败", zap.Error(err))
	}
	handoff, err := service.NewHandoffService(cfg.Ticket.Secret, cfg.Ticket.Realm, nil)
	if err != nil {
		logger.Fatal("初始化服务票据令牌失败", zap.Error(err))
	}

	// 会话服务
	codec, err := service.NewSessionCodec(cfg.Session.Codec)
	if err != nil {
		logger.Fatal("初始化会话编码失败", zap.Error(err))
	}
	sessionService := service.NewSessionService(redis.GetClient(), &service.SessionServiceConfig{
		SessionExpiry: cfg.Session.Expiry,
		Codec:         codec,
	})

	var revocations service.RevocationList
	if cfg.Ticket.RevokeOnRenew {
		revocations = service.NewRevocationList(redis.GetClient(), nil)
		logger.Info("已启用续期后撤销旧票据")
	}

	authService := service.NewAuthService(userRepo)
	ticketAuth := service.NewTicketAuthService(service.TicketAuthConfig{
		Auth:     authService,
		Tickets:  tickets,
		Sessions: sessionService,
		Handoff:  handoff,
		Sink: service.NewMultiSink(
			service.NewAccessLogSink(logRepo),
			service.NewZapEventSink(logger),
		),
		Revocations:   revocations,
		SessionExpiry: cfg.Session.Expiry,
		Logger:        logger,
	})

	// 设置 Gin 模式
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := handler.NewRouter(handler.RouterDeps{
		TicketAuth:     ticketAuth,
		AuthService:    authService,
		UserService:    service.NewUserService(userRepo),
		SessionService: sessionService,
		Tickets:        tickets,
		Handoff:        handoff,
		AccessLogs:     logRepo,
		Cookie: middleware.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
		},
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Checkers: map[string]handler.Checker{
			"database": func(context.Context) error { return database.Ping() },
			"redis":    redis.Ping,
		},
	})
	if err != nil {
		logger.Fatal("创建路由失败", zap.Error(err))
	}

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("服务启动",
			zap.String("addr", cfg.Server.Addr),
			zap.String("realm", cfg.Ticket.Realm),
			zap.String("digest", cfg.Ticket.Digest),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务...")

	// 优雅关闭，等待 5 秒
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务关闭失败", zap.Error(err))
	}

	logger.Info("服务已关闭")
}
