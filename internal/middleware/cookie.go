package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieConfig 会话 Cookie 配置
type CookieConfig struct {
	Name   string
	Secure bool
}

// SetSessionCookie 写入会话 Cookie，仅限 HTTP 访问
func SetSessionCookie(c *gin.Context, cfg CookieConfig, sessionID string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, sessionID, maxAge, "/", "", cfg.Secure, true)
}

// ClearSessionCookie 清除会话 Cookie
func ClearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, "", -1, "/", "", cfg.Secure, true)
}
