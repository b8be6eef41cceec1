package handler

import (
	"context"
	"time"

	"github.com/bpalanga/cryptoweb/pkg/response"
	"github.com/gin-gonic/gin"
)

// Checker 依赖健康检查
type Checker func(ctx context.Context) error

// Health 健康检查
// GET /health
func Health(checkers map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		}
		for name, check := range checkers {
			status := "ok"
			if err := check(c.Request.Context()); err != nil {
				status = "error"
				result["status"] = "degraded"
			}
			result[name] = status
		}
		response.Success(c, result)
	}
}
