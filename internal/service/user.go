package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/repository"
)

var (
	ErrUserIDEmpty      = errors.New("用户 ID 不能为空")
	ErrUserIDInvalid    = errors.New("用户 ID 只能包含字母、数字、点、下划线和连字符，长度 3-50")
	ErrFullNameEmpty    = errors.New("姓名不能为空")
	ErrEmailEmpty       = errors.New("邮箱不能为空")
	ErrEmailInvalid     = errors.New("邮箱格式无效")
	ErrPasswordEmpty    = errors.New("密码不能为空")
	ErrPasswordTooShort = errors.New("密码长度不能少于 8 个字符")
	ErrRoleInvalid      = errors.New("角色无效")
)

var (
	userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

type UserService interface {
	Create(ctx context.Context, user *model.User, password string) error
	GetByID(ctx context.Context, userID string) (*model.User, error)
	SetActive(ctx context.Context, userID string, active bool) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) Create(ctx context.Context, user *model.User, password string) error {
	if err := s.validateUser(user); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return errors.New("密码加密失败")
	}
	user.IsActive = true
	return s.userRepo.Create(ctx, user)
}

func (s *userService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUserIDEmpty
	}
	return s.userRepo.GetByID(ctx, userID)
}

func (s *userService) SetActive(ctx context.Context, userID string, active bool) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = active
	return s.userRepo.Update(ctx, user)
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDEmpty
	}
	return s.userRepo.Delete(ctx, userID)
}

func (s *userService) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	if page == nil {
		page = &repository.Pagination{Page: 1, PageSize: 20}
	}
	return s.userRepo.List(ctx, filter, page)
}

func (s *userService) validateUser(user *model.User) error {
	if user == nil {
		return errors.New("用户信息不能为空")
	}
	user.UserID = strings.TrimSpace(user.UserID)
	if user.UserID == "" {
		return ErrUserIDEmpty
	}
	if !userIDRegex.MatchString(user.UserID) {
		return ErrUserIDInvalid
	}
	user.FullName = strings.TrimSpace(user.FullName)
	if user.FullName == "" {
		return ErrFullNameEmpty
	}
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return ErrEmailEmpty
	}
	if !emailRegex.MatchString(user.Email) {
		return ErrEmailInvalid
	}
	if user.Role == "" {
		user.Role = model.RoleCustomer
	}
	if !model.ValidRole(user.Role) {
		return ErrRoleInvalid
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordEmpty
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}
