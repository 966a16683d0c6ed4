// Package middleware gin 中间件：认证、限流、审计、追踪与恢复
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/utils"
)

// gin.Context 中的键
const (
	ContextUserID = "user_id"
	ContextTier   = "tier"
)

// DefaultSkipPaths 公开路径，以 / 结尾的按前缀匹配
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/v1/auth/",
}

// AuthConfig 认证配置
type AuthConfig struct {
	Secret    string
	Issuer    string
	SkipPaths []string
	Enabled   bool
}

type pathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

func newPathMatcher(paths []string) pathMatcher {
	m := pathMatcher{exact: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			m.prefixes = append(m.prefixes, p)
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

func (m pathMatcher) match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Auth 校验 Bearer access token，把用户 ID 与等级放进 gin.Context
// 等级取自令牌，升级后需刷新令牌才生效
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	jwt := utils.NewJWTManager(cfg.Secret, cfg.Issuer)
	public := newPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if public.match(c.Request.URL.Path) {
			c.Next()
			return
		}

		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		claims, err := jwt.ParseToken(raw)
		switch {
		case errors.Is(err, utils.ErrExpiredToken):
			abortUnauthorized(c, "token expired")
			return
		case err != nil:
			abortUnauthorized(c, "invalid token")
			return
		case claims.Type != utils.TokenTypeAccess:
			abortUnauthorized(c, "invalid token type")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextTier, string(entity.ParseTier(claims.Tier)))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID))
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

// UserID 当前用户，公开路径上为空
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Tier 缺失时为 free
func Tier(c *gin.Context) entity.Tier {
	return entity.ParseTier(c.GetString(ContextTier))
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     http.StatusUnauthorized,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
