// Package model 定义数据模型
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel 基础模型，包含通用字段
type BaseModel struct {
	ID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate 创建前自动生成 UUID
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// 角色常量，票据层只把角色当作不透明字符串
const (
	RoleAdmin    = "admin"    // 管理员
	RoleMerchant = "merchant" // 商户
	RoleCustomer = "customer" // 持卡客户
	RoleAuditor  = "auditor"  // 审计员
)

// ValidRole 检查角色是否为已知角色
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleMerchant, RoleCustomer, RoleAuditor:
		return true
	}
	return false
}
