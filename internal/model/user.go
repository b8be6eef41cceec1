package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 登录失败锁定策略
const (
	MaxFailedLogins = 5
	LockDuration    = 15 * time.Minute
)

// User 用户模型
type User struct {
	UserID           string         `gorm:"column:userid;type:varchar(50);primaryKey" json:"userid"`
	PasswordHash     string         `gorm:"type:varchar(255);not null" json:"-"`
	Role             string         `gorm:"type:varchar(20);index;not null;default:customer" json:"role"`
	FullName         string         `gorm:"type:varchar(100)" json:"full_name"`
	Email            string         `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	LastLogin        *time.Time     `json:"last_login,omitempty"`
	FailedLoginCount int            `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码（哈希存储）
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword 验证密码
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IsLocked 检查用户是否被锁定
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// IncrementFailedLogin 增加登录失败次数
func (u *User) IncrementFailedLogin() {
	u.FailedLoginCount++
	if u.FailedLoginCount >= MaxFailedLogins {
		lockTime := time.Now().Add(LockDuration)
		u.LockedUntil = &lockTime
	}
}

// ResetFailedLogin 重置登录失败次数
func (u *User) ResetFailedLogin() {
	u.FailedLoginCount = 0
	u.LockedUntil = nil
}

// MarkLogin 记录登录时间
func (u *User) MarkLogin(at time.Time) {
	u.LastLogin = &at
}
