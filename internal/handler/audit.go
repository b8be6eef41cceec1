package handler

import (
	"strconv"

	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
)

// AuditHandler 访问日志查询
type AuditHandler struct {
	logRepo repository.AccessLogRepository
}

// NewAuditHandler 创建访问日志处理器
func NewAuditHandler(logRepo repository.AccessLogRepository) *AuditHandler {
	return &AuditHandler{logRepo: logRepo}
}

// ListLogs 查询访问日志，action 按前缀匹配
// GET /api/v1/audit-logs?userid=&action=KERBEROS_&page=&page_size=
func (h *AuditHandler) ListLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	pagination := &repository.Pagination{Page: page, PageSize: pageSize}
	if !pagination.Valid() {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "分页参数无效")
		return
	}

	filter := &repository.AccessLogFilter{
		UserID: c.Query("userid"),
		Action: c.Query("action"),
	}
	logs, total, err := h.logRepo.List(c.Request.Context(), filter, pagination)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
