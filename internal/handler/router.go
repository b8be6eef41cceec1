package handler

import (
	"github.com/bpalanga/cryptoweb/internal/middleware"
	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	TicketAuth     service.TicketAuthService
	AuthService    service.AuthService
	UserService    service.UserService
	SessionService service.SessionService
	Tickets        ticket.Service
	Handoff        service.HandoffService
	AccessLogs     repository.AccessLogRepository
	Cookie         middleware.CookieConfig
	CORSOrigins    []string
	TrustedProxies []string
	Checkers       map[string]Checker
}

// NewRouter 创建路由
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	router := gin.New()
	// 票据绑定客户端地址，只信任显式配置的代理
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(deps.CORSOrigins...))

	authHandler := NewAuthHandler(deps.TicketAuth, deps.AuthService, deps.Tickets, deps.Cookie)
	ticketHandler := NewTicketHandler(deps.TicketAuth, deps.Tickets, deps.Handoff, deps.Cookie)
	userHandler := NewUserHandler(deps.UserService, deps.SessionService)

	router.GET("/health", Health(deps.Checkers))

	api := router.Group("/api/v1")
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, "pong")
		})

		// 认证路由（公开）
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
		}

		// 下游服务校验服务票据令牌
		api.POST("/ticket/service/verify", ticketHandler.VerifyServiceToken)

		// 需要有效票据的路由
		authRequired := api.Group("")
		authRequired.Use(middleware.TicketAuth(deps.TicketAuth, deps.Cookie))
		{
			authRequired.GET("/auth/me", authHandler.GetCurrentUser)
			authRequired.PUT("/auth/password", authHandler.ChangePassword)

			authRequired.GET("/ticket", ticketHandler.Status)
			authRequired.POST("/ticket/renew", ticketHandler.Renew)
			authRequired.POST("/ticket/service", ticketHandler.IssueServiceTicket)

			users := authRequired.Group("/users", middleware.RequireRole(model.RoleAdmin))
			{
				users.GET("", userHandler.ListUsers)
				users.POST("", userHandler.CreateUser)
				users.GET("/:id", userHandler.GetUser)
				users.PATCH("/:id/status", userHandler.UpdateStatus)
				users.DELETE("/:id", userHandler.DeleteUser)
				users.GET("/:id/sessions", userHandler.ListSessions)
			}

			if deps.AccessLogs != nil {
				auditHandler := NewAuditHandler(deps.AccessLogs)
				authRequired.GET("/audit-logs",
					middleware.RequireRole(model.RoleAdmin, model.RoleAuditor),
					auditHandler.ListLogs)
			}
		}
	}

	return router, nil
}
