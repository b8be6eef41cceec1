package repository

import (
	"context"

	"github.com/bpalanga/cryptoweb/internal/model"
	"gorm.io/gorm"
)

// AccessLogRepository 访问日志数据访问接口
type AccessLogRepository interface {
	Create(ctx context.Context, log *model.AccessLog) error
	List(ctx context.Context, filter *AccessLogFilter, page *Pagination) ([]*model.AccessLog, int64, error)
}

// AccessLogFilter 访问日志过滤条件
type AccessLogFilter struct {
	UserID string
	Action string // 前缀匹配，如 KERBEROS_
}

type accessLogRepository struct {
	db *gorm.DB
}

// NewAccessLogRepository 创建访问日志数据访问实例
func NewAccessLogRepository(db *gorm.DB) AccessLogRepository {
	return &accessLogRepository{db: db}
}

func (r *accessLogRepository) Create(ctx context.Context, log *model.AccessLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *accessLogRepository) List(ctx context.Context, filter *AccessLogFilter, page *Pagination) ([]*model.AccessLog, int64, error) {
	var logs []*model.AccessLog
	var total int64
	query := r.db.WithContext(ctx).Model(&model.AccessLog{})
	if filter != nil {
		if filter.UserID != "" {
			query = query.Where("userid = ?", filter.UserID)
		}
		if filter.Action != "" {
			query = query.Where("action LIKE ?", filter.Action+"%")
		}
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page.Valid() {
		query = query.Offset(page.Offset()).Limit(page.PageSize)
	}
	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
