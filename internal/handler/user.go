package handler

import (
	"errors"
	"strconv"

	"github.com/bpalanga/cryptoweb/internal/middleware"
	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler 用户管理处理器，仅管理员可用
type UserHandler struct {
	userService    service.UserService
	sessionService service.SessionService
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(userSvc service.UserService, sessionSvc service.SessionService) *UserHandler {
	return &UserHandler{userService: userSvc, sessionService: sessionSvc}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	UserID   string `json:"userid" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"`
}

// UpdateStatusRequest 启用/停用请求
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

const maxPageSize = 100

func userView(user *model.User) gin.H {
	return gin.H{
		"userid":     user.UserID,
		"email":      user.Email,
		"full_name":  user.FullName,
		"role":       user.Role,
		"is_active":  user.IsActive,
		"last_login": user.LastLogin,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}

// ListUsers 获取用户列表
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := &repository.UserFilter{
		UserID: c.Query("userid"),
		Role:   c.Query("role"),
	}
	if active := c.Query("is_active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}

	pagination := &repository.Pagination{Page: page, PageSize: pageSize}
	if !pagination.Valid() {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "分页参数无效")
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), filter, pagination)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	list := make([]gin.H, len(users))
	for i, user := range users {
		list[i] = userView(user)
	}

	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetUser 获取用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, response.CodeUserNotFound)
		return
	}
	response.Success(c, userView(user))
}

// CreateUser 管理员注册新用户
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	user := &model.User{
		UserID:   req.UserID,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	}
	if err := h.userService.Create(c.Request.Context(), user, req.Password); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserIDExists):
			response.Error(c, response.CodeUserExists)
		case errors.Is(err, repository.ErrUserEmailExists):
			response.Error(c, response.CodeEmailExists)
		case errors.Is(err, service.ErrRoleInvalid),
			errors.Is(err, service.ErrUserIDInvalid),
			errors.Is(err, service.ErrEmailInvalid),
			errors.Is(err, service.ErrPasswordTooShort):
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.SuccessWithMsg(c, "用户已创建", userView(user))
}

// UpdateStatus 启用或停用用户，停用时终止其全部会话
// PATCH /api/v1/users/:id/status
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	id := c.Param("id")
	if err := h.userService.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	if !*req.IsActive && !h.killSessions(c, id) {
		return
	}
	response.SuccessWithMsg(c, "用户状态已更新", nil)
}

// DeleteUser 删除用户并终止其全部会话
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == c.GetString(middleware.ContextUserID) {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "不能删除当前登录用户")
		return
	}
	if err := h.userService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}
	if !h.killSessions(c, id) {
		return
	}
	response.SuccessWithMsg(c, "用户已删除", nil)
}

// killSessions 终止用户全部会话，失败时写入错误响应
// 会话中的票据在过期前仍然有效，终止失败不能当作成功返回
func (h *UserHandler) killSessions(c *gin.Context, userID string) bool {
	if err := h.sessionService.DeleteByUserID(c.Request.Context(), userID); err != nil {
		middleware.GetLogger().Error("终止用户会话失败",
			zap.String("userid", userID),
			zap.Error(err),
		)
		response.ErrorWithMsg(c, response.CodeServerError, "用户已更新，但终止其会话失败，请重试")
		return false
	}
	return true
}

// ListSessions 列出用户的活动会话
// GET /api/v1/users/:id/sessions
func (h *UserHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListByUserID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	list := make([]gin.H, len(sessions))
	for i, s := range sessions {
		list[i] = gin.H{
			"id":         s.ID,
			"ip_address": s.IPAddress,
			"user_agent": s.UserAgent,
			"created_at": s.CreatedAt,
			"expires_at": s.ExpiresAt,
		}
	}
	response.Success(c, gin.H{"list": list, "total": len(list)})
}
