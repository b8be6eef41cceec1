package service

import (
	"context"
	"errors"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/internal/ticket"
	"go.uber.org/zap"
)

// 票据事件写入访问日志时使用的动作前缀与目标表
const (
	AccessLogActionPrefix = "KERBEROS_"
	AccessLogTarget       = "KerberosAuth"
)

// accessLogSink 将票据事件写入 access_logs 表
type accessLogSink struct {
	repo repository.AccessLogRepository
}

// NewAccessLogSink 创建访问日志事件接收方
func NewAccessLogSink(repo repository.AccessLogRepository) ticket.EventSink {
	return &accessLogSink{repo: repo}
}

func (s *accessLogSink) Record(ctx context.Context, event ticket.Event) error {
	return s.repo.Create(ctx, &model.AccessLog{
		UserID:    event.UserID,
		Action:    AccessLogActionPrefix + event.Type,
		Target:    AccessLogTarget,
		Detail:    event.Detail,
		IPAddress: event.ClientAddress,
		UserAgent: event.UserAgent,
	})
}

// zapEventSink 将票据事件写入结构化日志，失败类事件使用 Warn 级别
type zapEventSink struct {
	logger *zap.Logger
}

// NewZapEventSink 创建日志事件接收方
func NewZapEventSink(logger *zap.Logger) ticket.EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapEventSink{logger: logger}
}

func (s *zapEventSink) Record(_ context.Context, event ticket.Event) error {
	fields := []zap.Field{
		zap.String("event_type", event.Type),
		zap.String("userid", event.UserID),
		zap.String("client_ip", event.ClientAddress),
		zap.String("detail", event.Detail),
	}
	switch event.Type {
	case ticket.EventValidationFailed, ticket.EventAuthFailed:
		s.logger.Warn("票据安全事件", fields...)
	default:
		s.logger.Info("票据安全事件", fields...)
	}
	return nil
}

// multiSink 依次写入所有接收方，单个接收方失败不影响其他接收方
type multiSink []ticket.EventSink

// NewMultiSink 组合多个事件接收方
func NewMultiSink(sinks ...ticket.EventSink) ticket.EventSink {
	var ms multiSink
	for _, s := range sinks {
		if s != nil {
			ms = append(ms, s)
		}
	}
	return ms
}

func (m multiSink) Record(ctx context.Context, event ticket.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
