// Package service 业务逻辑层
package service

import (
	"context"
	"errors"
	"time"

	"github.com/bpalanga/cryptoweb/internal/repository"
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAccountLocked      = errors.New("账户已锁定，请稍后再试")
	ErrUserNotFound       = errors.New("用户不存在")
)

// Principal 认证通过的主体
type Principal struct {
	UserID   string
	Role     string
	FullName string
	IsActive bool
}

// AuthService 认证服务接口
type AuthService interface {
	// VerifyCredentials 验证用户凭据，未知用户、密码错误和已停用账户都返回 ErrInvalidCredentials
	VerifyCredentials(ctx context.Context, userID, password string) (*Principal, error)
	// ChangePassword 修改密码
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	// UnlockAccount 解锁账户
	UnlockAccount(ctx context.Context, userID string) error
}

// authService 认证服务实现
type authService struct {
	userRepo repository.UserRepository
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

// VerifyCredentials 验证用户凭据
func (s *authService) VerifyCredentials(ctx context.Context, userID, password string) (*Principal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 检查账户是否被锁定
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	// 已停用账户与错误凭据不作区分
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	// 验证密码
	if !user.VerifyPassword(password) {
		user.IncrementFailedLogin()
		_ = s.userRepo.Update(ctx, user)
		return nil, ErrInvalidCredentials
	}

	// 登录成功，重置失败次数并记录登录时间
	user.ResetFailedLogin()
	user.MarkLogin(time.Now())
	_ = s.userRepo.Update(ctx, user)

	return &Principal{
		UserID:   user.UserID,
		Role:     user.Role,
		FullName: user.FullName,
		IsActive: user.IsActive,
	}, nil
}

// ChangePassword 修改密码
func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	// 验证旧密码
	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidCredentials
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	// 设置新密码
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}

	return s.userRepo.Update(ctx, user)
}

// UnlockAccount 解锁账户
func (s *authService) UnlockAccount(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	user.ResetFailedLogin()

	return s.userRepo.Update(ctx, user)
}
