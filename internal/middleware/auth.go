package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/service"
	"github.com/wfunc/founder-game/internal/utils"
)

// 上下文键
const (
	CtxSessionID     = "sessionID"
	CtxIdentityToken = "identityToken"
	CtxIdentityKind  = "identityKind"
)

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth 要求请求携带有效会话令牌
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, errors.New(errors.ErrTokenInvalid, "缺少认证令牌"))
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, errors.Wrap(err, errors.ErrTokenInvalid, "令牌验证失败"))
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth 令牌有效则注入会话信息，无令牌照常放行
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := m.authService.ValidateToken(c.Request.Context(), token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set(CtxSessionID, claims.SessionID)
	c.Set(CtxIdentityToken, claims.IdentityToken)
	c.Set(CtxIdentityKind, claims.IdentityKind)
}

func abortUnauthorized(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
}

// extractToken 依次尝试Authorization头、X-Access-Token头和token查询参数
// 查询参数是给WebSocket握手用的，浏览器的WebSocket API带不了自定义头
func extractToken(c *gin.Context) string {
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		if rest, ok := strings.CutPrefix(bearer, "Bearer "); ok {
			return rest
		}
	}
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}
	return c.Query("token")
}

// GetSessionID 从上下文获取会话ID
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(CtxSessionID)
	if !exists {
		return "", false
	}
	id, ok := sessionID.(string)
	return id, ok
}
